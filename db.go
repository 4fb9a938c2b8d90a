package main

import (
	"log"
	"os"
	"strings"

	"sendmoney/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. Persistent sessions require a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Errors are logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Session{}); err != nil {
			log.Printf("migration warning (sessions): %v", err)
		}
	}
	purgeDeadSessions()
}

// purgeDeadSessions drops sessions that can no longer authenticate anyone.
func purgeDeadSessions() {
	res := db.Where("revoked = ? OR expires_at < now()", true).Delete(&models.Session{})
	if res.Error != nil {
		log.Printf("failed to purge dead sessions: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("purged %d dead sessions", res.RowsAffected)
	}
}
