package app

import (
	"context"
	"errors"
)

// Prune deletes signal history rows older than the cutoff.
func (a *App) Prune(ctx context.Context, opts PruneOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot prune")
	}
	if closeStore != nil {
		defer closeStore()
	}

	before, err := store.CountSignals(ctx)
	if err != nil {
		return err
	}

	if opts.DryRun {
		a.Logger.Info().Int64("total", before).Time("older_than", opts.OlderThan).Msg("prune dry-run: no rows deleted")
		return nil
	}

	if err := store.DeleteSignalsBefore(ctx, opts.OlderThan); err != nil {
		return err
	}

	after, err := store.CountSignals(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().Int64("deleted", before-after).Int64("remaining", after).Time("older_than", opts.OlderThan).Msg("prune complete")
	return nil
}
