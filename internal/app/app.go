package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"mms-alerts/internal/alerting"
	"mms-alerts/internal/config"
	"mms-alerts/internal/quote"
	"mms-alerts/internal/scheduler"
	"mms-alerts/internal/service"
	"mms-alerts/internal/snapshot"
	"mms-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() quote.Fetcher {
	return quote.NewBrapi(quote.BrapiOptions{
		BaseURL:   a.Config.Quote.BaseURL,
		Token:     a.Config.Quote.Token,
		RangeDays: a.Config.Quote.RangeDays,
		Interval:  a.Config.Quote.Interval,
		Timeout:   a.Config.Quote.RequestTimeout,
		UserAgent: a.Config.Quote.UserAgent,
	}, a.Logger)
}

func (a *App) newWriter() (*snapshot.Writer, error) {
	store, err := snapshot.NewFSStore(a.Config.Snapshot.Dir)
	if err != nil {
		return nil, err
	}
	return snapshot.NewWriter(store, a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newRunner(ctx context.Context) (*service.Runner, func(), error) {
	writer, err := a.newWriter()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; signal history disabled")
	}

	var signalStore storage.SignalStore
	if store != nil {
		signalStore = store
	}

	runner := service.New(a.Config, a.newFetcher(), writer, signalStore, a.newNotifier(), a.Logger)
	return runner, closeStore, nil
}

// RunOnce executes a single pipeline cycle. The exit status of the binary
// follows its error: a failed snapshot write is fatal, per-symbol failures
// are not.
func (a *App) RunOnce(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, closeStore, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	summary, err := runner.RunOnce(ctx, time.Now().UTC())
	if err != nil {
		a.Logger.Error().Err(err).Msg("pipeline run failed")
		return err
	}

	a.Logger.Info().Str("file", summary.SnapshotFile).Msg("run finished")
	return nil
}

// Watch executes the pipeline on the internal aligned-interval scheduler
// until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, closeStore, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting watch loop")
	err = sched.Run(ctx, runner.ProcessTick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

// ExportOptions hold parameters for exporting signal history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	Ticker    string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// PruneOptions configure signal history retention.
type PruneOptions struct {
	OlderThan time.Time
	DryRun    bool
}
