package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrRateLimited is returned when the API answers with a quota notice.
	ErrRateLimited = errors.New("alphavantage: rate limited")
	// ErrNoData is returned when the API answers with an empty payload.
	ErrNoData = errors.New("alphavantage: no data")
)

const redactedKey = "REDACTED"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GlobalQuote fetches the latest quote for symbol.
func (c *Client) GlobalQuote(ctx context.Context, symbol string) (Quote, error) {
	params := url.Values{}
	params.Set("function", functionGlobalQuote)
	params.Set("symbol", symbol)

	body, err := c.get(ctx, params)
	if err != nil {
		return Quote{}, err
	}

	var resp globalQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Quote{}, fmt.Errorf("decode response: %w", err)
	}
	if err := resp.notice.err(); err != nil {
		return Quote{}, err
	}
	if resp.Quote.Price == "" {
		return Quote{}, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	q, err := parseQuote(resp.Quote)
	if err != nil {
		return Quote{}, fmt.Errorf("parse quote: %w", err)
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	return q, nil
}

// TimeSeries fetches OHLCV rows for symbol, newest first, at most limit rows.
func (c *Client) TimeSeries(ctx context.Context, symbol string, interval SeriesInterval, limit int) ([]Bar, error) {
	if !interval.IsValid() {
		return nil, fmt.Errorf("invalid series interval: %q", interval)
	}
	meta := interval.meta()

	params := url.Values{}
	params.Set("function", meta.Function)
	params.Set("symbol", symbol)
	if meta.Interval != "" {
		params.Set("interval", meta.Interval)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	// Step 1: check for notices before looking for the series key
	var n notice
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := n.err(); err != nil {
		return nil, err
	}

	// Step 2: decode the rows under the interval's series key
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	series, ok := raw[meta.SeriesKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrNoData, meta.SeriesKey)
	}

	var rows map[string]rawBar
	if err := json.Unmarshal(series, &rows); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}

	bars, err := parseSeries(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("parse series: %w", err)
	}
	return bars, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", redactedKey)
	redacted := c.baseURL + "/query?" + params.Encode()
	params.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "/query?" + params.Encode()

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the key travels in the query string; keep it out of error text
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redacted
		}
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage error: status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func (n notice) err() error {
	switch {
	case n.ErrorMessage != "":
		return fmt.Errorf("alphavantage error: %s", n.ErrorMessage)
	case n.Note != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, n.Note)
	case n.Information != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, n.Information)
	}
	return nil
}
