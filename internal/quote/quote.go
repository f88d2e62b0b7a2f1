package quote

import (
	"context"
	"errors"

	"mms-alerts/internal/market"
)

// Fetcher retrieves the recent OHLCV history for one symbol.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol string) (market.Series, error)
}

var (
	// ErrRateLimited marks a transient upstream rejection (HTTP 429). The run
	// does not retry; the next scheduled invocation will.
	ErrRateLimited = errors.New("quote: rate limited by upstream")

	// ErrBadPayload marks a malformed or empty provider response. Not
	// retryable within the run.
	ErrBadPayload = errors.New("quote: malformed or empty payload")
)
