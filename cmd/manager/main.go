package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/handlers"
	"github.com/fleetwatch/fleetwatch/internal/manager"
	"github.com/fleetwatch/fleetwatch/internal/query"
	"github.com/fleetwatch/fleetwatch/internal/rate"
	"github.com/fleetwatch/fleetwatch/internal/routes"
	"github.com/fleetwatch/fleetwatch/internal/rpc"
	"github.com/fleetwatch/fleetwatch/internal/store"
)

func main() {
	// JSON structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting FleetWatch manager", "version", handlers.Version)

	// ─── Config ──────────────────────────────────────────────────────────
	cfg := config.Load(os.Args[1:])

	// ─── Sample Store ────────────────────────────────────────────────────
	samples := store.New()
	if err := samples.Init(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName); err != nil {
		slog.Error("Sample store initialization failed", "error", err)
		os.Exit(1)
	}
	defer samples.Close()

	// ─── Ingestion ───────────────────────────────────────────────────────
	rates := rate.New()
	hosts := manager.NewHostManager(samples, rates,
		time.Duration(cfg.LivenessTTLSeconds)*time.Second)
	hosts.Start()
	defer hosts.Stop()

	// ─── Query Service ───────────────────────────────────────────────────
	queries := query.NewService(samples)

	// ─── Transport ───────────────────────────────────────────────────────
	grpcServer := rpc.NewServer(cfg.ListenAddr, hosts, queries)

	// ─── Admin HTTP Surface ──────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      "fleetwatch v" + handlers.Version,
		ServerHeader: "fleetwatch",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": message,
			})
		},
	})
	app.Use(cors.New())
	app.Use(recover.New())

	fleetHandler := handlers.NewFleetHandler(hosts, queries)
	routes.Setup(app, fleetHandler)

	// ─── Run ─────────────────────────────────────────────────────────────
	var g errgroup.Group
	g.Go(grpcServer.Run)
	g.Go(func() error {
		return app.Listen(":" + cfg.AdminPort)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("Shutdown signal received", "signal", sig.String())
		grpcServer.Shutdown()
		if err := app.Shutdown(); err != nil {
			slog.Error("Admin server shutdown failed", "error", err)
		}
	}()

	if err := g.Wait(); err != nil {
		slog.Error("Server terminated", "error", err)
		os.Exit(1)
	}
	slog.Info("FleetWatch manager stopped")
}
