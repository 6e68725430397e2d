// Command subscriber tails the transaction channels the API publishes to
// Redis and logs each event.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/confidential-dex/internal/cache"
	"github.com/aman-zulfiqar/confidential-dex/internal/config"
	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	walletFlag := flag.String("wallet", "", "Only follow this wallet's transactions")
	typeFlag := flag.String("type", "", "Only follow one transaction type (swap or liquidity)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required for the subscriber")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	var channels []string
	switch {
	case *walletFlag != "":
		channels = append(channels, cache.WalletChannel(*walletFlag))
	case *typeFlag != "":
		channels = append(channels, cache.TypeChannel(models.TransactionType(strings.ToLower(*typeFlag))))
	default:
		channels = append(channels, cache.ChannelAll)
	}

	events, err := rc.SubscribeTransactions(ctx, channels...)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}
	logger.WithField("channels", channels).Info("subscriber running, press Ctrl+C to stop")

	for tx := range events {
		logger.WithFields(logrus.Fields{
			"id":     tx.ID,
			"wallet": tx.WalletAddress,
			"type":   tx.Type,
			"pair":   tx.FromToken + "/" + tx.ToToken,
			"amount": tx.Amount.String(),
			"status": tx.Status,
		}).Info("transaction")
	}
	logger.Info("subscriber stopped")
}
