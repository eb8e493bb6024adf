package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/openthesis/oracle/pkg/httputil"
	"github.com/openthesis/oracle/pkg/logger"
)

// Scraper extracts a quote from the ticker's public quote page.
// Used as a fallback when the CSV endpoint has no data for a symbol.
type Scraper struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
}

// NewScraper creates a new quote page scraper
func NewScraper(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Scraper {
	return &Scraper{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log,
	}
}

// Price fetches the quote page and extracts the regular market price.
func (s *Scraper) Price(ctx context.Context, ticker string) (float64, error) {
	fullURL := fmt.Sprintf("%s/quote/%s", s.baseURL, url.PathEscape(strings.ToUpper(ticker)))

	resp, err := s.httpClient.Get(ctx, fullURL)
	if err != nil {
		return 0, fmt.Errorf("quote page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse quote page: %w", err)
	}

	sel := doc.Find(`[data-field="regularMarketPrice"]`).First()
	if sel.Length() == 0 {
		return 0, fmt.Errorf("price element not found for %s", ticker)
	}

	raw := sel.AttrOr("data-value", "")
	if raw == "" {
		raw = sel.Text()
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse scraped price %q: %w", raw, err)
	}

	if price <= 0 {
		return 0, fmt.Errorf("non-positive scraped price: %f", price)
	}

	s.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"price":  price,
	}).Debug("Scraped quote")

	return price, nil
}
