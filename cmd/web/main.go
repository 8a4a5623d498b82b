package main

import (
	"context"
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	apphttp "plantbid.kr/app/internal/http"
	"plantbid.kr/app/internal/modules/payments"
	"plantbid.kr/app/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	cfg := payments.ConfigFromEnv()
	if cfg.APISecret == "" {
		logger.Warn("portone api secret not configured; payment routes will fail fast")
	}

	archive, err := storage.FromEnv(context.Background())
	if err != nil {
		log.Fatalf("failed to init archive storage: %v", err)
	}
	logger.Info("archive storage ready", "driver", archive.Driver)

	r := apphttp.NewRouter(logger, db, cfg, archive.Storage)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	_ = r.Run(addr)
}
