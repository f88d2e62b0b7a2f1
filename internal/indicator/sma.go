package indicator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"mms-alerts/internal/market"
)

// ErrInsufficientData indicates a series shorter than the SMA window.
var ErrInsufficientData = errors.New("indicator: insufficient data for window")

// Point is the SMA value at one bar position. Value is meaningful only when
// Defined is true, i.e. at least window bars precede the position inclusive.
type Point struct {
	Defined bool
	Value   decimal.Decimal
}

// SMA computes the trailing simple moving average of closing prices over the
// given window. The result is parallel to the input bars: one Point per bar,
// undefined for the first window-1 positions. The input is not mutated.
func SMA(bars []market.Bar, window int) ([]Point, error) {
	if window <= 0 {
		return nil, fmt.Errorf("indicator: window must be positive, got %d", window)
	}

	points := make([]Point, len(bars))
	div := decimal.NewFromInt(int64(window))
	sum := decimal.Zero
	for i, bar := range bars {
		sum = sum.Add(bar.Close)
		if i >= window {
			sum = sum.Sub(bars[i-window].Close)
		}
		if i >= window-1 {
			points[i] = Point{Defined: true, Value: sum.Div(div)}
		}
	}
	return points, nil
}
