package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/ai"
	"github.com/aman-zulfiqar/confidential-dex/internal/cache"
	"github.com/aman-zulfiqar/confidential-dex/internal/confidential"
	"github.com/aman-zulfiqar/confidential-dex/internal/config"
	"github.com/aman-zulfiqar/confidential-dex/internal/engine"
	"github.com/aman-zulfiqar/confidential-dex/internal/oracle"
	"github.com/aman-zulfiqar/confidential-dex/internal/server"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage/backend"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// loadEnv reads .env from the project root when present.
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "../..", ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Store: Postgres when DATABASE_URL is set, otherwise in-memory
	store, storeKind, err := backend.Open(ctx, backend.Options{
		DatabaseURL: cfg.DatabaseURL,
		MaxTries:    uint(cfg.StoreConnectRetries),
		Logger:      logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("failed to close store")
		}
	}()

	vault, err := confidential.New(cfg.ConfidentialKey)
	if err != nil {
		logger.WithError(err).Fatal("failed to create confidentiality service")
	}
	if cfg.ConfidentialKey == "" {
		logger.Warn("CONFIDENTIAL_KEY not set, balances will not decrypt after restart")
	}

	// Optional Redis: price mirror, recent transactions and pub/sub
	var (
		sinks      []storage.TransactionSink
		priceCache storage.PriceCache
		recent     server.RecentFeed
	)
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		pingCancel()
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, continuing without it")
			_ = rc.Close()
		} else {
			defer rc.Close()
			sinks = append(sinks, rc)
			priceCache = rc
			recent = rc
		}
	}

	// Optional ClickHouse transaction archive
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, transactions will not be archived")
		} else {
			defer ch.Close()
			sinks = append(sinks, ch)
		}
	}

	prices := oracle.New(oracle.Config{
		Feeds: []oracle.Feed{
			oracle.NewCoinGecko(cfg.CoinGeckoBaseURL, cfg.HTTPTimeout),
			oracle.NewBinance(cfg.BinanceBaseURL, cfg.HTTPTimeout),
		},
		Interval: cfg.PriceRefreshInterval,
		Cache:    priceCache,
		Logger:   logger,
	})
	if err := prices.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start price oracle")
	}
	defer prices.Stop()

	eng, err := engine.New(engine.Config{
		Store:  store,
		Vault:  vault,
		Prices: prices,
		Sinks:  sinks,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create engine")
	}

	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		Logger:             logger,
	}

	h := &server.Handlers{
		Engine:       eng,
		Oracle:       prices,
		Store:        store,
		StoreKind:    storeKind,
		AIBaseConfig: aiBase,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}
	if recent != nil {
		h.Recent = recent
	}

	// The analytics agent needs both an LLM key and the ClickHouse archive
	if cfg.OpenRouterAPIKey != "" && cfg.ClickHouseAddr != "" {
		agent, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			defer agent.Close()
			h.AI = agent
		}
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		prices.Stop()
		cancel()
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":  cfg.APIAddr,
		"store": storeKind,
		"sinks": len(sinks),
		"ai":    h.AI != nil,
	}).Info("api server starting")
	if err := srv.Start(); err != nil {
		logger.WithError(err).Fatal("api server failed")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer waitCancel()
	if err := srv.WaitClosed(waitCtx); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
