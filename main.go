package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"vidtube/pkg/media"
)

// Process-wide read-only state, wired once at startup.
var (
	cfg     *Config
	users   UserStore
	tokens  *tokenIssuer
	uploads media.Uploader
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	var err error
	cfg, err = loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Support a lightweight migrate command: `./vidtube migrate`
	// It runs AutoMigrate then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB(cfg)
		log.Println("migration completed")
		return
	}

	initDB(cfg)
	users = newGormUserStore(db)
	tokens = newTokenIssuer(cfg)
	uploads = media.NewLocalStore(cfg.UploadBase)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(corsMiddleware(cfg.CORSOrigin))
	r.Static("/public", cfg.UploadBase)
	setupRoutes(r)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
