package main

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"vidtube/models"
)

var db *gorm.DB

func initDB(cfg *Config) {
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	var err error
	db, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	if cfg.AutoMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.Video{}); err != nil {
			log.Printf("migration warning (videos): %v", err)
		}
		if err := db.AutoMigrate(&models.Subscription{}); err != nil {
			log.Printf("migration warning (subscriptions): %v", err)
		}
		if err := db.AutoMigrate(&models.WatchEvent{}); err != nil {
			log.Printf("migration warning (watch_events): %v", err)
		}
	}
	ensureUploadBase(cfg)
}

// ensureUploadBase creates the base directory uploaded media is served from.
func ensureUploadBase(cfg *Config) {
	if err := os.MkdirAll(cfg.UploadBase, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", cfg.UploadBase, err)
	}
}
