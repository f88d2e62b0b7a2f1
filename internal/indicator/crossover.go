package indicator

import (
	"github.com/shopspring/decimal"

	"mms-alerts/internal/market"
)

// Relation orders a price against its SMA value.
type Relation int

const (
	Below Relation = iota
	Equal
	Above
)

// Crossover classifies the transition between two consecutive
// (price, SMA) observations.
type Crossover int

const (
	// NoCrossover covers every transition that is not a strict side change,
	// including flat EQUAL-to-EQUAL sequences.
	NoCrossover Crossover = iota
	// CrossUp means the price moved from at-or-below the SMA to strictly above.
	CrossUp
	// CrossDown means the price moved from at-or-above the SMA to strictly below.
	CrossDown
	// Indeterminate means fewer than two defined SMA points were available.
	Indeterminate
)

// Compare computes the relation of a price to its SMA. Comparison is exact:
// no tolerance band is applied around equality.
func Compare(price, sma decimal.Decimal) Relation {
	switch price.Cmp(sma) {
	case 1:
		return Above
	case -1:
		return Below
	default:
		return Equal
	}
}

// Detect classifies the step from the previous (price, SMA) pair to the
// current one. Both SMA points must be defined; otherwise the step is
// Indeterminate. Only this single step matters: the detector never searches
// history for an older crossover.
func Detect(prevClose decimal.Decimal, prevSMA Point, curClose decimal.Decimal, curSMA Point) Crossover {
	if !prevSMA.Defined || !curSMA.Defined {
		return Indeterminate
	}

	prev := Compare(prevClose, prevSMA.Value)
	cur := Compare(curClose, curSMA.Value)

	switch {
	case cur == Above && prev != Above:
		return CrossUp
	case cur == Below && prev != Below:
		return CrossDown
	default:
		return NoCrossover
	}
}

// Classify maps a crossover to a trading signal. HOLD is the default for
// every input that is not a strict side change.
func Classify(c Crossover) market.Signal {
	switch c {
	case CrossUp:
		return market.SignalBuy
	case CrossDown:
		return market.SignalSell
	default:
		return market.SignalHold
	}
}
