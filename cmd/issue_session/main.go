package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"sendmoney/models"
	"sendmoney/pkg/session"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Mints a session for a backend user id, for local testing of the send-money
// page. Login itself lives in the main banking app.
func main() {
	userID := flag.Int64("user", 0, "backend user id")
	ttl := flag.Duration("ttl", 24*time.Hour, "session lifetime")
	flag.Parse()
	if *userID <= 0 {
		fmt.Println("usage: go run ./cmd/issue_session -user <id> [-ttl 24h]")
		os.Exit(2)
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Session{}); err != nil {
		log.Printf("migration warning (sessions): %v", err)
	}

	token, err := session.Issue(context.Background(), session.NewGormStore(db), []byte(secret), *userID, *ttl)
	if err != nil {
		log.Fatalf("failed to issue session: %v", err)
	}
	fmt.Printf("session for user %d (expires in %s):\n%s\n", *userID, *ttl, token)
}
