package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"marketready/internal/config"
	"marketready/internal/hub"
	"marketready/internal/jobs"
	"marketready/internal/logging"
	"marketready/internal/mailer"
	"marketready/internal/server"
	"marketready/internal/storage"
	"marketready/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	m, err := mailer.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("mailer setup failed", zap.Error(err))
	}

	var pictures storage.Pictures = storage.DisabledPictures{}
	if cfg.Storage.Endpoint != "" {
		pictures, err = storage.NewMinIOPictures(cfg.Storage)
		if err != nil {
			logger.Fatal("object storage setup failed", zap.Error(err))
		}
	}

	eventHub := hub.New()

	runner := cron.New()
	if err := jobs.NewSweeper(st, logger).Schedule(runner); err != nil {
		logger.Fatal("sweeper scheduling failed", zap.Error(err))
	}
	runner.Start()
	defer runner.Stop()

	router := server.NewRouter(server.Deps{
		Store:    st,
		Config:   cfg,
		Mailer:   m,
		Pictures: pictures,
		Hub:      eventHub,
		Logger:   logger,
	})

	logger.Info("listening", zap.String("addr", fmt.Sprintf(":%d", cfg.Port)))
	if err := server.Run(cfg, router); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
