package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/saeid-a/CoachLinkBack/internal/database"
	"github.com/saeid-a/CoachLinkBack/internal/logging"
)

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"), "text", os.Stderr)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		logger.Error("DB_URL environment variable is required")
		os.Exit(1)
	}

	dir, err := database.FindMigrationsDir()
	if err != nil {
		logger.Error("locate migrations", "error", err)
		os.Exit(1)
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	if err := database.Migrate(dbURL, dir, direction); err != nil {
		logger.Error("migration failed", "direction", direction, "error", err)
		os.Exit(1)
	}
	logger.Info("migration successful", slog.String("direction", direction), slog.String("dir", dir))
}
