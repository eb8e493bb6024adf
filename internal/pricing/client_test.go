package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthesis/oracle/pkg/config"
	"github.com/openthesis/oracle/pkg/httputil"
	"github.com/openthesis/oracle/pkg/logger"
)

func quoteConfig(baseURL string) config.QuoteConfig {
	return config.QuoteConfig{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		RequestsPerSec: 100,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := httputil.New(logger.NewNop()).DisableRetry()
	return NewClient(httpClient, quoteConfig(server.URL), logger.NewNop()), server
}

func TestClientPrice(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aapl", r.URL.Query().Get("s"), "symbols are lowercased")
		fmt.Fprintln(w, "Symbol,Date,Time,Open,High,Low,Close,Volume")
		fmt.Fprintln(w, "AAPL,2026-08-28,22:00:00,229.1,231.5,228.2,230.45,51234567")
	})

	price, err := client.Price(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 230.45, price, 1e-9)
}

func TestClientPriceNoData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Symbol,Date,Time,Open,High,Low,Close,Volume")
		fmt.Fprintln(w, "NOSUCH,N/D,N/D,N/D,N/D,N/D,N/D,N/D")
	})

	_, err := client.Price(context.Background(), "NOSUCH")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote data")
}

func TestClientPriceServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Price(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code")
}

func TestParseQuoteCSV(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr string
	}{
		{
			name: "valid quote",
			body: "Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
				"tsla,2026-08-28,22:00:00,340.0,345.0,338.0,342.50,9876543\n",
			want: 342.50,
		},
		{
			name:    "header only",
			body:    "Symbol,Date,Time,Open,High,Low,Close,Volume\n",
			wantErr: "empty quote response",
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: "empty quote response",
		},
		{
			name:    "truncated row",
			body:    "Symbol,Date,Time,Open,High,Low,Close,Volume\nAAPL,2026-08-28\n",
			wantErr: "malformed quote row",
		},
		{
			name: "non-numeric close",
			body: "Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
				"AAPL,2026-08-28,22:00:00,1,1,1,garbage,1\n",
			wantErr: "parse close",
		},
		{
			name: "zero close rejected",
			body: "Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
				"AAPL,2026-08-28,22:00:00,1,1,1,0,1\n",
			wantErr: "non-positive price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := parseQuoteCSV(strings.NewReader(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, price, 1e-9)
		})
	}
}
