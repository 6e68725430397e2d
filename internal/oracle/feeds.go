package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Feed fetches USD quotes for the volatile assets. Keys are "ETH" and "BTC";
// a feed may omit either.
type Feed interface {
	Name() string
	FetchPrices(ctx context.Context) (map[string]float64, error)
}

type HTTPError struct {
	Feed       string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("%s http %d", e.Feed, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.Feed, e.StatusCode, b)
}

func getJSON(ctx context.Context, client *http.Client, feed, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPError{Feed: feed, StatusCode: res.StatusCode, Body: body}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", feed, err)
	}
	return nil
}

// CoinGecko is the primary feed.
type CoinGecko struct {
	BaseURL string
	HTTP    *http.Client
}

func NewCoinGecko(baseURL string, timeout time.Duration) *CoinGecko {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGecko{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

func (c *CoinGecko) Name() string { return "coingecko" }

func (c *CoinGecko) FetchPrices(ctx context.Context) (map[string]float64, error) {
	q := url.Values{}
	q.Set("ids", "ethereum,bitcoin")
	q.Set("vs_currencies", "usd")

	var body map[string]map[string]float64
	if err := getJSON(ctx, c.HTTP, c.Name(), c.BaseURL+"/simple/price?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	out := make(map[string]float64, 2)
	if v := body["ethereum"]["usd"]; v > 0 {
		out["ETH"] = v
	}
	if v := body["bitcoin"]["usd"]; v > 0 {
		out["BTC"] = v
	}
	return out, nil
}

// Binance is the fallback feed; it needs one request per symbol.
type Binance struct {
	BaseURL string
	HTTP    *http.Client
}

func NewBinance(baseURL string, timeout time.Duration) *Binance {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.binance.com/api/v3"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Binance{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

func (b *Binance) Name() string { return "binance" }

var binanceSymbols = map[string]string{
	"ETH": "ETHUSDT",
	"BTC": "BTCUSDT",
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchPrices fails unless every symbol resolves.
func (b *Binance) FetchPrices(ctx context.Context) (map[string]float64, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]float64, len(binanceSymbols))
	keys := make([]string, 0, len(binanceSymbols))
	for k := range binanceSymbols {
		keys = append(keys, k)
	}

	for i, key := range keys {
		g.Go(func() error {
			var t binanceTicker
			u := b.BaseURL + "/ticker/price?symbol=" + url.QueryEscape(binanceSymbols[key])
			if err := getJSON(gctx, b.HTTP, b.Name(), u, &t); err != nil {
				return err
			}
			p, err := strconv.ParseFloat(t.Price, 64)
			if err != nil {
				return fmt.Errorf("binance %s: invalid price %q: %w", t.Symbol, t.Price, err)
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(keys))
	for i, key := range keys {
		if results[i] > 0 {
			out[key] = results[i]
		}
	}
	return out, nil
}
