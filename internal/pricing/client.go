package pricing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/openthesis/oracle/pkg/config"
	"github.com/openthesis/oracle/pkg/httputil"
	"github.com/openthesis/oracle/pkg/logger"
)

// Client fetches current quotes from a stooq-style CSV endpoint.
// Response format: a header row followed by one data row,
// Symbol,Date,Time,Open,High,Low,Close,Volume. A close of "N/D" means
// the symbol is unknown or the market has no data.
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *logger.Logger
}

// NewClient creates a new quote client
func NewClient(httpClient *httputil.Client, cfg config.QuoteConfig, log *logger.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		timeout:    cfg.Timeout,
		logger:     log,
	}
}

// Price returns the current market price for a ticker.
func (c *Client) Price(ctx context.Context, ticker string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("quote rate limit: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	fullURL := fmt.Sprintf(
		"%s/q/l/?s=%s&f=sd2t2ohlcv&h&e=csv",
		c.baseURL, url.QueryEscape(strings.ToLower(ticker)),
	)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return 0, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	price, err := parseQuoteCSV(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse quote for %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"price":  price,
	}).Debug("Fetched quote")

	return price, nil
}

// parseQuoteCSV extracts the close price from the CSV payload.
func parseQuoteCSV(body io.Reader) (float64, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read CSV: %w", err)
	}

	// Header + at least one data row
	if len(records) < 2 {
		return 0, fmt.Errorf("empty quote response")
	}

	row := records[1]
	if len(row) < 7 {
		return 0, fmt.Errorf("malformed quote row: %d fields", len(row))
	}

	closeStr := strings.TrimSpace(row[6])
	if closeStr == "" || strings.EqualFold(closeStr, "N/D") {
		return 0, fmt.Errorf("no quote data")
	}

	price, err := strconv.ParseFloat(closeStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse close %q: %w", closeStr, err)
	}

	if price <= 0 {
		return 0, fmt.Errorf("non-positive price: %f", price)
	}

	return price, nil
}
