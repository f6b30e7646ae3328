package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"linkup/config"
	"linkup/controllers"
	"linkup/routes"
	"linkup/services"
	"linkup/store"
)

func main() {
	cfg := config.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo init failed", "error", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())
	logger.Info("connected to MongoDB", "db", cfg.MongoDB)

	cleanup := services.NewCleanupService(st, logger, cfg.SweepBatchSize)
	matches := services.NewMatchService(st, logger, cleanup)
	offers := services.NewOfferService(st, logger, matches, time.Duration(cfg.OfferTTLMin)*time.Minute)
	presence := services.NewPresenceService(st, logger)
	places := services.NewPlaceService(st)

	app := fiber.New()
	routes.SetupRoutes(app,
		controllers.NewPresenceController(presence),
		controllers.NewOfferController(offers),
		controllers.NewMatchController(matches),
		controllers.NewPlaceController(places),
	)

	// scheduled expiry sweep
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.SweepIntervalMin) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := cleanup.SweepExpired(ctx); err != nil {
					logger.Error("sweep failed", "error", err)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("starting server", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
