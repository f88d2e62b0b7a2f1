package indicator

import (
	"fmt"

	"mms-alerts/internal/market"
)

// Evaluation is the classified state of the most recent bar.
type Evaluation struct {
	Signal    market.Signal
	Crossover Crossover
	SMA       Point
}

// Evaluate runs the SMA over a series and classifies its latest bar from the
// last two defined SMA points. It returns ErrInsufficientData when the series
// is too short to define an SMA value at the final position.
func Evaluate(series market.Series, window int) (Evaluation, error) {
	if series.Len() < window {
		return Evaluation{}, fmt.Errorf("%w: symbol %s has %d bars, window %d", ErrInsufficientData, series.Symbol, series.Len(), window)
	}

	points, err := SMA(series.Bars, window)
	if err != nil {
		return Evaluation{}, err
	}

	last := series.Len() - 1
	cur := points[last]

	var crossover Crossover = Indeterminate
	if last > 0 {
		crossover = Detect(series.Bars[last-1].Close, points[last-1], series.Bars[last].Close, cur)
	}

	return Evaluation{
		Signal:    Classify(crossover),
		Crossover: crossover,
		SMA:       cur,
	}, nil
}
