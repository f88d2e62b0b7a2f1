package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the classification attached to the latest bar of a symbol.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Bar is a single OHLCV observation.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Series is an ordered quote series for one symbol.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Validate checks series ordering invariants: strictly increasing
// timestamps, no duplicates, non-negative prices and volume.
func (s Series) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("series symbol is empty")
	}
	var prev time.Time
	for i, bar := range s.Bars {
		if i > 0 && !bar.Time.After(prev) {
			return fmt.Errorf("series %s: bar %d timestamp %s not after %s", s.Symbol, i, bar.Time.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		if bar.Close.IsNegative() || bar.Open.IsNegative() || bar.High.IsNegative() || bar.Low.IsNegative() {
			return fmt.Errorf("series %s: bar %d has negative price", s.Symbol, i)
		}
		if bar.Volume < 0 {
			return fmt.Errorf("series %s: bar %d has negative volume", s.Symbol, i)
		}
		prev = bar.Time
	}
	return nil
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s.Bars)
}

// Last returns the most recent bar. It panics on an empty series; callers
// check Len first.
func (s Series) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}

// AlertRecord is one persisted snapshot row.
type AlertRecord struct {
	Ticker string
	BarTS  time.Time
	Status Signal
	Close  decimal.Decimal
	MMS    decimal.Decimal
	Window int
}
