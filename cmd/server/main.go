package main

import (
	"log"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app"
	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := app.OpenDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Println("Connected to Postgres")

	app.InitStripe(cfg)

	router := app.NewRouter(app.NewApp(cfg, db))
	if err := router.Run("0.0.0.0:8080"); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
