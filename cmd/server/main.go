package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/saeid-a/CoachLinkBack/internal/config"
	"github.com/saeid-a/CoachLinkBack/internal/database"
	"github.com/saeid-a/CoachLinkBack/internal/handlers"
	"github.com/saeid-a/CoachLinkBack/internal/logging"
	"github.com/saeid-a/CoachLinkBack/internal/routes"
	chatws "github.com/saeid-a/CoachLinkBack/internal/websocket"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logFormat := cfg.LogFormat
	if cfg.AppEnv == "development" {
		logFormat = "text"
	}
	logger := logging.New(cfg.LogLevel, logFormat, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DBUrl, cfg.DBMaxConns, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	app := fiber.New(fiber.Config{
		AppName:      "CoachLink",
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
	}))

	hub := chatws.NewHub(logger)
	if err := routes.RegisterRoutes(app, cfg, pool, hub, logger); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		hub.Close()
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
