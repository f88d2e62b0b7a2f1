package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mms-alerts/internal/alerting"
	"mms-alerts/internal/config"
	"mms-alerts/internal/indicator"
	"mms-alerts/internal/market"
	"mms-alerts/internal/quote"
	"mms-alerts/internal/snapshot"
	"mms-alerts/internal/storage"
)

// Runner orchestrates one pipeline cycle: fetch, classify, snapshot, notify.
type Runner struct {
	fetcher  quote.Fetcher
	writer   *snapshot.Writer
	store    storage.SignalStore
	notifier alerting.Notifier
	logger   zerolog.Logger

	symbols  []string
	window   int
	workers  int
	channels []string
	alertsOn bool
	locker   storage.AdvisoryLocker
	lockKey  int64
}

// New constructs the pipeline runner. Store and notifier are optional; the
// snapshot writer is the primary output and is required.
func New(cfg *config.Config, fetcher quote.Fetcher, writer *snapshot.Writer, store storage.SignalStore, notifier alerting.Notifier, logger zerolog.Logger) *Runner {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	workers := cfg.WorkerCount()
	if workers < 1 {
		workers = 1
	}

	return &Runner{
		fetcher:  fetcher,
		writer:   writer,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "runner").Logger(),
		symbols:  cfg.Pipeline.Symbols,
		window:   cfg.Pipeline.Window,
		workers:  workers,
		channels: cfg.Alerting.Channels,
		alertsOn: cfg.Alerting.Enabled,
		locker:   locker,
		lockKey:  cfg.Scheduler.AdvisoryLockKey,
	}
}

// Summary reports the outcome of one run.
type Summary struct {
	SnapshotFile string
	Succeeded    int
	Failed       int
	Buys         int
	Sells        int
	Holds        int
}

// symbolOutcome is produced by one worker for one symbol.
type symbolOutcome struct {
	index  int
	symbol string
	record market.AlertRecord
	err    error
}

// ProcessTick runs one cycle under the watch-mode advisory lock.
func (r *Runner) ProcessTick(ctx context.Context, runStart time.Time) error {
	unlock, proceed, err := r.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		r.logger.Debug().Time("run", runStart).Msg("skip run because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = r.RunOnce(ctx, runStart)
	return err
}

// RunOnce executes a full pipeline cycle for the configured symbols.
// Per-symbol failures are isolated: the run still produces a snapshot with
// the rows that succeeded. A snapshot persistence failure, or cancellation
// before the snapshot is published, fails the whole run.
func (r *Runner) RunOnce(ctx context.Context, runStart time.Time) (Summary, error) {
	if r.fetcher == nil {
		return Summary{}, fmt.Errorf("quote fetcher not configured")
	}
	if r.writer == nil {
		return Summary{}, fmt.Errorf("snapshot writer not configured")
	}

	r.logger.Info().Int("symbols", len(r.symbols)).Int("window", r.window).Time("run", runStart).Msg("starting pipeline run")

	outcomes := r.collect(ctx)

	// A cancelled run must not publish a partial snapshot.
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	records := make([]market.AlertRecord, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.err != nil {
			summary.Failed++
			r.logFailure(outcome)
			continue
		}

		summary.Succeeded++
		switch outcome.record.Status {
		case market.SignalBuy:
			summary.Buys++
		case market.SignalSell:
			summary.Sells++
		default:
			summary.Holds++
		}

		r.logger.Info().
			Str("ticker", outcome.record.Ticker).
			Str("status", string(outcome.record.Status)).
			Str("close", outcome.record.Close.String()).
			Str("mms", outcome.record.MMS.String()).
			Int("periodo_mms", outcome.record.Window).
			Msg("symbol classified")

		records = append(records, outcome.record)
	}

	file, err := r.writer.Write(ctx, runStart, records)
	if err != nil {
		return summary, fmt.Errorf("write snapshot: %w", err)
	}
	summary.SnapshotFile = file

	r.persistHistory(ctx, runStart, records)
	r.dispatchAlerts(ctx, records)

	r.logger.Info().
		Str("file", file).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("buy", summary.Buys).
		Int("sell", summary.Sells).
		Int("hold", summary.Holds).
		Msg("pipeline run complete")

	return summary, nil
}

// collect fans symbol jobs out to a bounded worker pool. Each worker owns its
// fetched series and produces at most one record; results are combined only
// after every worker returns.
func (r *Runner) collect(ctx context.Context) []symbolOutcome {
	jobs := make(chan symbolOutcome)
	results := make(chan symbolOutcome, len(r.symbols))

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				job.record, job.err = r.processSymbol(ctx, job.symbol)
				results <- job
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, symbol := range r.symbols {
			select {
			case jobs <- symbolOutcome{index: i, symbol: symbol}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]symbolOutcome, 0, len(r.symbols))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}

	// Snapshot rows follow the configured symbol order regardless of which
	// worker finished first.
	ordered := make([]symbolOutcome, 0, len(outcomes))
	for i := range r.symbols {
		for _, outcome := range outcomes {
			if outcome.index == i {
				ordered = append(ordered, outcome)
				break
			}
		}
	}
	return ordered
}

// processSymbol fetches and classifies one symbol.
func (r *Runner) processSymbol(ctx context.Context, symbol string) (market.AlertRecord, error) {
	series, err := r.fetcher.FetchSeries(ctx, symbol)
	if err != nil {
		return market.AlertRecord{}, err
	}

	eval, err := indicator.Evaluate(series, r.window)
	if err != nil {
		return market.AlertRecord{}, err
	}

	last := series.Last()
	return market.AlertRecord{
		Ticker: symbol,
		BarTS:  last.Time,
		Status: eval.Signal,
		Close:  last.Close,
		MMS:    eval.SMA.Value,
		Window: r.window,
	}, nil
}

func (r *Runner) logFailure(outcome symbolOutcome) {
	kind := "fetch"
	level := zerolog.ErrorLevel
	switch {
	case errors.Is(outcome.err, quote.ErrRateLimited):
		kind = "rate_limited"
		level = zerolog.WarnLevel
	case errors.Is(outcome.err, quote.ErrBadPayload):
		kind = "bad_payload"
	case errors.Is(outcome.err, indicator.ErrInsufficientData):
		kind = "insufficient_history"
		level = zerolog.WarnLevel
	}
	r.logger.WithLevel(level).Err(outcome.err).Str("symbol", outcome.symbol).Str("kind", kind).Msg("symbol excluded from run")
}

// persistHistory mirrors the snapshot rows into the optional Postgres sink.
// Failures here are logged, never fatal: the snapshot is the primary output.
func (r *Runner) persistHistory(ctx context.Context, runStart time.Time, records []market.AlertRecord) {
	if r.store == nil || len(records) == 0 {
		return
	}

	rows := make([]storage.SignalRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, storage.SignalRow{
			Ticker: rec.Ticker,
			BarTS:  rec.BarTS,
			Status: string(rec.Status),
			Close:  rec.Close,
			MMS:    rec.MMS,
			Window: rec.Window,
			RunTS:  runStart,
		})
	}

	if err := r.store.InsertSignals(ctx, rows); err != nil {
		r.logger.Error().Err(err).Int("rows", len(rows)).Msg("failed to persist signal history")
	}
}

// dispatchAlerts pushes BUY/SELL rows to the notifier. HOLD never notifies.
func (r *Runner) dispatchAlerts(ctx context.Context, records []market.AlertRecord) {
	if !r.alertsOn || r.notifier == nil {
		return
	}

	for _, rec := range records {
		if rec.Status != market.SignalBuy && rec.Status != market.SignalSell {
			continue
		}
		note := alerting.Notification{
			Ticker:   rec.Ticker,
			BarTS:    rec.BarTS,
			Signal:   rec.Status,
			Close:    rec.Close,
			MMS:      rec.MMS,
			Window:   rec.Window,
			Channels: r.channels,
		}
		if err := r.notifier.Notify(ctx, note); err != nil {
			r.logger.Error().Err(err).Str("ticker", rec.Ticker).Msg("failed to dispatch alert")
		}
	}
}

func (r *Runner) acquireLock(ctx context.Context) (func(), bool, error) {
	if r.lockKey == 0 || r.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := r.locker.TryAdvisoryLock(ctx, r.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
