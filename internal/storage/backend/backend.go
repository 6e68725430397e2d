// Package backend picks the ledger store once at process start.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage/memory"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage/postgres"
	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

const (
	KindMemory   = "memory"
	KindPostgres = "postgres"
)

type Options struct {
	DatabaseURL string
	MaxTries    uint
	RetryDelay  time.Duration
	Logger      *logrus.Logger
}

// Open returns a seeded store and its kind. With a DATABASE_URL it tries
// Postgres (retrying the connection) and falls back to memory once if that
// fails; without one it uses memory directly.
func Open(ctx context.Context, opts Options) (storage.Store, string, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	if strings.TrimSpace(opts.DatabaseURL) != "" {
		pg, err := openPostgres(ctx, opts)
		if err == nil {
			return pg, KindPostgres, nil
		}
		opts.Logger.WithError(err).Warn("postgres unavailable, falling back to in-memory store")
	}

	mem := memory.NewStore()
	n, err := storage.Seed(ctx, mem)
	if err != nil {
		return nil, "", fmt.Errorf("failed to seed memory store: %w", err)
	}
	opts.Logger.WithField("pools", n).Info("using in-memory store")
	return mem, KindMemory, nil
}

func openPostgres(ctx context.Context, opts Options) (storage.Store, error) {
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.RetryDelay
	policy.MaxInterval = opts.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		opts.Logger.WithError(err).WithField("backoff", d).Warn("postgres connect failed, retrying")
	}

	operation := func() (*postgres.Store, error) {
		return postgres.Open(ctx, opts.DatabaseURL)
	}

	pg, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(opts.MaxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, err
	}

	if err := pg.Migrate(ctx); err != nil {
		_ = pg.Close()
		return nil, err
	}

	n, err := storage.Seed(ctx, pg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	opts.Logger.WithField("pools_seeded", n).Info("using postgres store")
	return pg, nil
}
