package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	ChannelAll    = "dex:transactions"
	channelType   = "dex:transactions:type:"
	channelWallet = "dex:transactions:wallet:"
)

// channelsFor lists every channel a transaction is published on.
func channelsFor(tx *models.Transaction) []string {
	return []string{
		ChannelAll,
		channelType + string(tx.Type),
		channelWallet + tx.WalletAddress,
	}
}

// TypeChannel is the channel carrying only transactions of type t.
func TypeChannel(t models.TransactionType) string {
	return channelType + string(t)
}

// WalletChannel is the channel carrying one wallet's transactions.
func WalletChannel(wallet string) string {
	return channelWallet + wallet
}

// SubscribeTransactions streams transactions published on the given
// channels or patterns (patterns contain '*'). The returned channel closes
// when ctx is cancelled.
func (r *RedisCache) SubscribeTransactions(ctx context.Context, channels ...string) (<-chan *models.Transaction, error) {
	if len(channels) == 0 {
		channels = []string{ChannelAll}
	}

	var plain, patterns []string
	for _, ch := range channels {
		if strings.ContainsAny(ch, "*?[") {
			patterns = append(patterns, ch)
		} else {
			plain = append(plain, ch)
		}
	}

	pubsub := r.client.Subscribe(ctx, plain...)
	if len(patterns) > 0 {
		if err := pubsub.PSubscribe(ctx, patterns...); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to psubscribe: %w", err)
		}
	}
	// Wait for every subscription to be confirmed before handing out events.
	for range len(plain) + len(patterns) {
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	r.logger.WithField("channels", channels).Info("subscribed to transaction events")

	out := make(chan *models.Transaction)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var tx models.Transaction
				if err := json.Unmarshal([]byte(msg.Payload), &tx); err != nil {
					r.logger.WithError(err).WithFields(logrus.Fields{
						"channel": msg.Channel,
					}).Warn("failed to decode transaction event")
					continue
				}
				select {
				case out <- &tx:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
