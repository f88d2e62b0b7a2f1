package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mms-alerts/internal/market"
)

const quotePath = "/quote/"

// BrapiOptions parameterise the brapi fetcher.
type BrapiOptions struct {
	BaseURL   string
	Token     string
	RangeDays int
	Interval  string
	Timeout   time.Duration
	UserAgent string
}

// Brapi fetches OHLCV candles from a brapi-compatible API.
type Brapi struct {
	opts    BrapiOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBrapi constructs a brapi fetcher.
func NewBrapi(opts BrapiOptions, logger zerolog.Logger) *Brapi {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://brapi.dev/api"
	}
	if opts.RangeDays <= 0 {
		opts.RangeDays = 5
	}
	if opts.Interval == "" {
		opts.Interval = "30m"
	}

	return &Brapi{
		opts:    opts,
		logger:  logger.With().Str("component", "quote_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchSeries retrieves the lookback history for one symbol and returns it as
// a validated, timestamp-ordered series.
func (b *Brapi) FetchSeries(ctx context.Context, symbol string) (market.Series, error) {
	if symbol == "" {
		return market.Series{}, fmt.Errorf("%w: empty symbol", ErrBadPayload)
	}

	endpoint := b.baseURL + quotePath + url.PathEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return market.Series{}, err
	}

	query := req.URL.Query()
	query.Set("range", fmt.Sprintf("%dd", b.opts.RangeDays))
	query.Set("interval", b.opts.Interval)
	query.Set("fields", "historicalData")
	if b.opts.Token != "" {
		query.Set("token", b.opts.Token)
	}
	req.URL.RawQuery = query.Encode()

	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "mmsalerts/1.0")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return market.Series{}, fmt.Errorf("quote request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return market.Series{}, fmt.Errorf("read quote response for %s: %w", symbol, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return market.Series{}, fmt.Errorf("%w: symbol %s", ErrRateLimited, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return market.Series{}, parseHTTPError(symbol, resp.StatusCode, payload)
	}

	series, err := decodeSeries(symbol, payload)
	if err != nil {
		return market.Series{}, err
	}

	b.logger.Debug().Str("symbol", symbol).Int("bars", series.Len()).Msg("series fetched")
	return series, nil
}

type quoteResponse struct {
	Results []struct {
		Symbol         string `json:"symbol"`
		HistoricalData []struct {
			Date   int64       `json:"date"`
			Open   json.Number `json:"open"`
			High   json.Number `json:"high"`
			Low    json.Number `json:"low"`
			Close  json.Number `json:"close"`
			Volume int64       `json:"volume"`
		} `json:"historicalData"`
	} `json:"results"`
}

func decodeSeries(symbol string, payload []byte) (market.Series, error) {
	var res quoteResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return market.Series{}, fmt.Errorf("%w: symbol %s: %v", ErrBadPayload, symbol, err)
	}
	if len(res.Results) == 0 {
		return market.Series{}, fmt.Errorf("%w: symbol %s: no results", ErrBadPayload, symbol)
	}

	candles := res.Results[0].HistoricalData
	if len(candles) == 0 {
		return market.Series{}, fmt.Errorf("%w: symbol %s: no historicalData", ErrBadPayload, symbol)
	}

	series := market.Series{Symbol: symbol, Bars: make([]market.Bar, 0, len(candles))}
	for i, candle := range candles {
		bar := market.Bar{
			Symbol: symbol,
			Time:   time.Unix(candle.Date, 0).UTC(),
			Volume: candle.Volume,
		}

		var err error
		if bar.Open, err = parsePrice(candle.Open); err != nil {
			return market.Series{}, fmt.Errorf("%w: symbol %s candle %d open: %v", ErrBadPayload, symbol, i, err)
		}
		if bar.High, err = parsePrice(candle.High); err != nil {
			return market.Series{}, fmt.Errorf("%w: symbol %s candle %d high: %v", ErrBadPayload, symbol, i, err)
		}
		if bar.Low, err = parsePrice(candle.Low); err != nil {
			return market.Series{}, fmt.Errorf("%w: symbol %s candle %d low: %v", ErrBadPayload, symbol, i, err)
		}
		if bar.Close, err = parsePrice(candle.Close); err != nil {
			return market.Series{}, fmt.Errorf("%w: symbol %s candle %d close: %v", ErrBadPayload, symbol, i, err)
		}

		series.Bars = append(series.Bars, bar)
	}

	sort.Slice(series.Bars, func(i, j int) bool {
		return series.Bars[i].Time.Before(series.Bars[j].Time)
	})

	if err := series.Validate(); err != nil {
		return market.Series{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	return series, nil
}

func parsePrice(num json.Number) (decimal.Decimal, error) {
	if num == "" {
		return decimal.Decimal{}, fmt.Errorf("missing value")
	}
	return decimal.NewFromString(num.String())
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(symbol string, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("quote api error for %s (%d): %s", symbol, status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("quote api error for %s (%d): %s", symbol, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("quote api error for %s (%d)", symbol, status)
}

var _ Fetcher = (*Brapi)(nil)
