package main

import (
	"promo-tracker/internal/app"
	"promo-tracker/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	app.Run(cfg)
}
