package quotes

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Source is the external market-data feed: a batch price endpoint and a
// historical candle endpoint. Both are fallible and rate-sensitive, which
// is why the caches sit in front of them.
type Source interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
	FetchSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle, error)
}

// RestClient is a client for the quote source REST API.
// It implements the Source interface.
type RestClient struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure RestClient implements the interface
var _ Source = (*RestClient)(nil)

// NewRestClient creates a new quote source REST API client.
func NewRestClient(cfg *config.Quotes, logger *zap.Logger) *RestClient {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:  client,
		apiKey:  cfg.ApiKey,
		logger:  logger,
		limiter: limiter,
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// tickerQuote represents the response for a single symbol's quote.
type tickerQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	AsOf   int64   `json:"as_of"` // unix seconds
}

// FetchQuotes fetches the latest price for a batch of symbols.
func (c *RestClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	var ticks []tickerQuote

	req := c.client.R().
		SetResult(&ticks).
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		SetHeader("Content-Type", "application/json")
	if c.apiKey != "" {
		req.SetHeader("X-Api-Key", c.apiKey)
	}

	resp, err := c.doRequest(ctx, "GET", "/quotes", req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	result := resp.Result().(*[]tickerQuote)
	quoteMap := make(map[string]models.Quote, len(*result))
	for _, tk := range *result {
		quoteMap[tk.Symbol] = models.Quote{
			Symbol:    tk.Symbol,
			Price:     tk.Price,
			FetchedAt: time.Unix(tk.AsOf, 0),
		}
	}

	return quoteMap, nil
}

// seriesCandle represents one OHLCV bucket in the history response.
type seriesCandle struct {
	Time   int64   `json:"time"` // unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// FetchSeries fetches the OHLCV history for one symbol over a window.
func (c *RestClient) FetchSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle, error) {
	var rows []seriesCandle

	req := c.client.R().
		SetResult(&rows).
		SetQueryParam("symbol", symbol).
		SetQueryParam("start", strconv.FormatInt(start.Unix(), 10)).
		SetQueryParam("end", strconv.FormatInt(end.Unix(), 10)).
		SetHeader("Content-Type", "application/json")
	if c.apiKey != "" {
		req.SetHeader("X-Api-Key", c.apiKey)
	}

	resp, err := c.doRequest(ctx, "GET", "/history", req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series for %s: %w", symbol, err)
	}

	result := resp.Result().(*[]seriesCandle)
	candles := make([]models.Candle, 0, len(*result))
	for _, r := range *result {
		candles = append(candles, models.Candle{
			Time:   time.Unix(r.Time, 0),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}

	return candles, nil
}
