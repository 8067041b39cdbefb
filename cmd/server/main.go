package main

import (
	"context"

	"github.com/coeurdepaille/matching-service/internal/app"
	"github.com/coeurdepaille/matching-service/internal/cache"
	"github.com/coeurdepaille/matching-service/internal/config"
	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/handler"
	"github.com/coeurdepaille/matching-service/internal/logger"
	"github.com/coeurdepaille/matching-service/internal/server"
	"github.com/coeurdepaille/matching-service/internal/service/auth"
	"github.com/coeurdepaille/matching-service/internal/service/matching"
	"github.com/coeurdepaille/matching-service/internal/service/messaging"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// The sqlite fixture backend starts empty; give dev runs demo data.
	if cfg.App.ENV == "development" && cfg.DB.Driver == "sqlite" {
		if err := db.SeedDemoData(database); err != nil {
			log.Error("failed to seed demo data", "err", err)
		}
	}

	registrars := []server.Registrar{
		handler.NewAuthHandler(auth.NewService(appCtx, tokens), log),
		handler.NewMatchingHandler(matching.NewService(appCtx), log),
		handler.NewMessagingHandler(messaging.NewService(appCtx), log),
	}

	engine := server.NewRouter(appCtx, tokens, registrars...)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr, "db_driver", cfg.DB.Driver)

	if err := server.Start(cfg, engine); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
