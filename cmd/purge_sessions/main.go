package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"sendmoney/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Deletes sessions that can no longer authenticate anyone. With -user it
// first revokes every live session of that user, which logs them out of all
// open send-money forms.
func main() {
	userID := flag.Int64("user", 0, "revoke all sessions of this backend user id first")
	dryRun := flag.Bool("dry-run", false, "report counts without changing anything")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	var revoked int64
	if *userID > 0 {
		q := db.Model(&models.Session{}).Where("user_id = ? AND revoked = ?", *userID, false)
		if *dryRun {
			if err := q.Count(&revoked).Error; err != nil {
				log.Fatalf("count user sessions: %v", err)
			}
		} else {
			res := q.Update("revoked", true)
			if res.Error != nil {
				log.Fatalf("revoke user sessions: %v", res.Error)
			}
			revoked = res.RowsAffected
		}
	}

	dead := db.Where("revoked = ? OR expires_at < ?", true, time.Now())
	var purged int64
	if *dryRun {
		if err := dead.Model(&models.Session{}).Count(&purged).Error; err != nil {
			log.Fatalf("count dead sessions: %v", err)
		}
		fmt.Printf("dry run: would revoke=%d, would purge=%d\n", revoked, purged)
		return
	}
	res := dead.Delete(&models.Session{})
	if res.Error != nil {
		log.Fatalf("purge sessions: %v", res.Error)
	}
	purged = res.RowsAffected
	fmt.Printf("cleanup done: sessions revoked=%d, purged=%d\n", revoked, purged)
}
