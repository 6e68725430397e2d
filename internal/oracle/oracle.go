// Package oracle keeps a cache of USD token prices refreshed from external
// feeds, falling back feed by feed and serving stale prices when all fail.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/amm"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultPrices are served until the first successful refresh.
func DefaultPrices() map[string]float64 {
	return map[string]float64{
		"ETH":  3500,
		"USDC": 1,
		"DAI":  1,
		"WBTC": 95000,
	}
}

type Config struct {
	Feeds    []Feed             // tried in order
	Interval time.Duration      // refresh period, default 30s
	Cache    storage.PriceCache // optional mirror
	Logger   *logrus.Logger
}

type Oracle struct {
	feeds    []Feed
	interval time.Duration
	cache    storage.PriceCache
	logger   *logrus.Logger

	mu          sync.RWMutex
	prices      map[string]float64
	lastUpdated time.Time

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config) *Oracle {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Oracle{
		feeds:       cfg.Feeds,
		interval:    cfg.Interval,
		cache:       cfg.Cache,
		logger:      cfg.Logger,
		prices:      DefaultPrices(),
		lastUpdated: time.Now().UTC(),
	}
}

// Refresh pulls prices from the first feed that answers. When every feed
// fails the cached prices are kept and the last error is returned.
func (o *Oracle) Refresh(ctx context.Context) error {
	var lastErr error
	for _, f := range o.feeds {
		quotes, err := f.FetchPrices(ctx)
		if err != nil {
			o.logger.WithError(err).WithField("feed", f.Name()).Warn("price feed failed")
			lastErr = err
			continue
		}
		o.apply(ctx, f.Name(), quotes)
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no price feeds configured")
	}
	o.logger.WithError(lastErr).Warn("all price feeds failed, serving cached prices")
	return fmt.Errorf("refresh prices: %w", lastErr)
}

func (o *Oracle) apply(ctx context.Context, feed string, quotes map[string]float64) {
	o.mu.Lock()
	if v, ok := quotes["ETH"]; ok && v > 0 {
		o.prices["ETH"] = v
	}
	if v, ok := quotes["BTC"]; ok && v > 0 {
		o.prices["WBTC"] = v
	}
	o.prices["USDC"] = 1
	o.prices["DAI"] = 1
	o.lastUpdated = time.Now().UTC()
	snapshot := make(map[string]float64, len(o.prices))
	for k, v := range o.prices {
		snapshot[k] = v
	}
	o.mu.Unlock()

	o.logger.WithFields(logrus.Fields{
		"feed": feed,
		"ETH":  snapshot["ETH"],
		"WBTC": snapshot["WBTC"],
	}).Info("prices updated")

	if o.cache == nil {
		return
	}
	for token, price := range snapshot {
		if err := o.cache.UpdatePrice(ctx, token, price); err != nil {
			o.logger.WithError(err).WithField("token", token).Warn("failed to mirror price")
		}
	}
}

// Start refreshes immediately and then every interval until Stop or ctx ends.
func (o *Oracle) Start(ctx context.Context) error {
	o.runMu.Lock()
	if o.running {
		o.runMu.Unlock()
		return fmt.Errorf("oracle already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	o.running = true
	o.cancel = cancel
	o.done = make(chan struct{})
	done := o.done
	o.runMu.Unlock()

	o.logger.WithFields(logrus.Fields{
		"interval": o.interval,
		"feeds":    len(o.feeds),
	}).Info("starting price oracle")

	go func() {
		defer close(done)
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		_ = o.Refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = o.Refresh(ctx)
			}
		}
	}()
	return nil
}

// Stop halts the refresh loop and waits for it to exit.
func (o *Oracle) Stop() {
	o.runMu.Lock()
	if !o.running {
		o.runMu.Unlock()
		return
	}
	o.running = false
	cancel, done := o.cancel, o.done
	o.runMu.Unlock()

	cancel()
	<-done
}

// GetPrice returns the cached USD price, or 0 for unknown tokens.
func (o *Oracle) GetPrice(token string) float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.prices[token]
}

// GetAllPrices returns a copy of the cache and when it was last refreshed.
func (o *Oracle) GetAllPrices() (map[string]float64, time.Time) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]float64, len(o.prices))
	for k, v := range o.prices {
		out[k] = v
	}
	return out, o.lastUpdated
}

// GetExchangeRate returns price(a)/price(b), or 0 when price(b) is 0.
func (o *Oracle) GetExchangeRate(a, b string) float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	pb := o.prices[b]
	if pb == 0 {
		return 0
	}
	return o.prices[a] / pb
}

// CalculateSwapOutput prices a swap off the oracle rate rather than a pool:
// amountIn * rate * (10000 - fee) / 10000.
func (o *Oracle) CalculateSwapOutput(tokenIn, tokenOut string, amountIn decimal.Decimal, feeBps int) decimal.Decimal {
	rate := decimal.NewFromFloat(o.GetExchangeRate(tokenIn, tokenOut))
	return amm.ApplyFee(amountIn.Mul(rate), feeBps)
}

// CalculatePriceImpact is the constant-product price impact in percent.
func (o *Oracle) CalculatePriceImpact(amountIn, reserveIn, reserveOut decimal.Decimal) float64 {
	return amm.PriceImpact(amountIn, reserveIn, reserveOut)
}
