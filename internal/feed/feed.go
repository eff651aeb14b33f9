// Package feed fetches live quotes for the local exchange. Live evaluation
// depends on exactly one external call per symbol; everything else in the
// engine runs off local storage.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mekong/internal/domain"
	"mekong/internal/util"
)

// Quote is one live price observation.
type Quote struct {
	Symbol string
	Date   time.Time
	Price  float64
}

// Quoter fetches the latest traded price for a symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// HTTPQuoter fetches quotes from a JSON endpoint. The configured URL carries
// a {symbol} placeholder expanded per request.
type HTTPQuoter struct {
	urlTemplate string
	client      *http.Client
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// Compile-time interface check.
var _ Quoter = (*HTTPQuoter)(nil)

// NewHTTPQuoter creates a quoter for the given URL template. A non-positive
// rate limit disables throttling.
func NewHTTPQuoter(urlTemplate string, timeout time.Duration, perMinute int, log *slog.Logger) *HTTPQuoter {
	var limiter *util.RateLimiter
	if perMinute > 0 {
		limiter = util.NewRateLimiter(perMinute)
	}
	return &HTTPQuoter{
		urlTemplate: urlTemplate,
		client:      &http.Client{Timeout: timeout},
		limiter:     limiter,
		log:         log,
	}
}

// quoteResponse is the endpoint's JSON payload.
type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
}

// Quote fetches the latest price for the symbol. Transient failures are
// retried; a response without a usable price maps to
// domain.ErrMissingExternalData so callers can abort the evaluation rather
// than trade on a stale close.
func (q *HTTPQuoter) Quote(ctx context.Context, symbol string) (Quote, error) {
	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			return Quote{}, err
		}
	}

	u := strings.ReplaceAll(q.urlTemplate, "{symbol}", url.PathEscape(symbol))

	var payload quoteResponse
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := q.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("quote %s: status %d", symbol, resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&payload)
	})
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	if payload.Price <= 0 {
		return Quote{}, fmt.Errorf("quote %s: empty price: %w", symbol, domain.ErrMissingExternalData)
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return Quote{}, fmt.Errorf("quote %s: bad date %q: %w", symbol, payload.Date, domain.ErrMissingExternalData)
		}
		date = parsed
	}

	q.log.Debug("fetched quote", "symbol", symbol, "price", payload.Price, "date", date.Format("2006-01-02"))
	return Quote{Symbol: symbol, Date: date, Price: payload.Price}, nil
}
