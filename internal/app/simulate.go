package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"mms-alerts/internal/alerting"
	"mms-alerts/internal/indicator"
	"mms-alerts/internal/market"
)

// Simulate feeds a synthetic close sequence through the SMA crossover
// classification and reports the resulting signal. No network fetch and no
// persistence take place; when alerting is enabled the notifier is exercised
// for BUY/SELL outcomes.
func (a *App) Simulate(ctx context.Context, ticker string, closes []decimal.Decimal, window int) error {
	if len(closes) == 0 {
		return errors.New("at least one close price is required")
	}
	if window <= 0 {
		window = a.Config.Pipeline.Window
	}

	series := syntheticSeries(ticker, closes)
	eval, err := indicator.Evaluate(series, window)
	if err != nil {
		return err
	}

	last := series.Last()
	fmt.Fprintf(os.Stdout, "ticker=%s status=%s close=%s mms=%s periodo_mms=%d\n",
		ticker, eval.Signal, last.Close.String(), eval.SMA.Value.String(), window)

	if eval.Signal == market.SignalHold {
		return nil
	}

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Debug().Msg("no notifier configured; skipping simulated alert dispatch")
		return nil
	}

	return notifier.Notify(ctx, alerting.Notification{
		Ticker:        ticker,
		BarTS:         last.Time,
		Signal:        eval.Signal,
		Close:         last.Close,
		MMS:           eval.SMA.Value,
		Window:        window,
		Channels:      a.Config.Alerting.Channels,
		AdditionalMsg: "(simulated)",
	})
}

// syntheticSeries spaces the closes at the configured bar interval ending now.
func syntheticSeries(ticker string, closes []decimal.Decimal) market.Series {
	interval := 30 * time.Minute
	start := time.Now().UTC().Truncate(interval).Add(-time.Duration(len(closes)-1) * interval)

	bars := make([]market.Bar, len(closes))
	for i, close := range closes {
		bars[i] = market.Bar{
			Symbol: ticker,
			Time:   start.Add(time.Duration(i) * interval),
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
		}
	}
	return market.Series{Symbol: ticker, Bars: bars}
}
