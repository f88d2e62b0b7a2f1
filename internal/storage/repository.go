package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSignalSQL = `INSERT INTO signals (
        ticker,
        bar_ts,
        status,
        close_price,
        mms,
        periodo_mms,
        run_ts
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (ticker, bar_ts, run_ts) DO UPDATE
    SET status      = EXCLUDED.status,
        close_price = EXCLUDED.close_price,
        mms         = EXCLUDED.mms,
        periodo_mms = EXCLUDED.periodo_mms;`

	listSignalsBetweenSQL = `SELECT
        id,
        ticker,
        bar_ts,
        status,
        close_price,
        mms,
        periodo_mms,
        run_ts,
        created_at
    FROM signals
    WHERE run_ts >= $1
      AND run_ts < $2
    ORDER BY run_ts, ticker;`

	listRecentSignalsSQL = `SELECT
        id,
        ticker,
        bar_ts,
        status,
        close_price,
        mms,
        periodo_mms,
        run_ts,
        created_at
    FROM signals
    ORDER BY run_ts DESC, ticker
    LIMIT $1;`

	countSignalsSQL = `SELECT COUNT(*) FROM signals;`

	deleteSignalsBeforeSQL = `DELETE FROM signals WHERE run_ts < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SignalStore defines operations for signal history persistence.
type SignalStore interface {
	InsertSignals(ctx context.Context, rows []SignalRow) error
	ListSignalsBetween(ctx context.Context, from, to time.Time) ([]SignalRow, error)
	ListRecentSignals(ctx context.Context, limit int) ([]SignalRow, error)
	CountSignals(ctx context.Context) (int64, error)
	DeleteSignalsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers used by the watch loop to keep
// a single instance sampling per interval.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides signal history access over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Unlock is best effort; the lock also drops with the connection.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// InsertSignals persists every row produced by one run in a single
// transaction: either the whole run's history lands or none of it does.
func (s *Store) InsertSignals(ctx context.Context, rows []SignalRow) error {
	if len(rows) == 0 {
		return nil
	}

	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin signal insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		if _, err := tx.Exec(ctx, insertSignalSQL,
			row.Ticker,
			row.BarTS,
			row.Status,
			row.Close.String(),
			row.MMS.String(),
			row.Window,
			row.RunTS,
		); err != nil {
			return fmt.Errorf("insert signal %s: %w", row.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit signal insert: %w", err)
	}
	return nil
}

// ListSignalsBetween lists signal rows whose run falls within a time window.
func (s *Store) ListSignalsBetween(ctx context.Context, from, to time.Time) ([]SignalRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSignalsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list signals between: %w", queryErr)
	}
	defer rows.Close()

	return collectSignalRows(rows, 0)
}

// ListRecentSignals lists the most recent signal rows ordered by descending run.
func (s *Store) ListRecentSignals(ctx context.Context, limit int) ([]SignalRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSignalsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent signals: %w", queryErr)
	}
	defer rows.Close()

	return collectSignalRows(rows, limit)
}

// CountSignals counts stored signal rows.
func (s *Store) CountSignals(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSignalsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count signals: %w", scanErr)
	}
	return count, nil
}

// DeleteSignalsBefore deletes historical signal rows.
func (s *Store) DeleteSignalsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteSignalsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete signals before: %w", execErr)
	}
	return nil
}

func collectSignalRows(rows pgx.Rows, sizeHint int) ([]SignalRow, error) {
	out := make([]SignalRow, 0, sizeHint)
	for rows.Next() {
		row, err := scanSignalRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanSignalRow(rows pgx.Rows) (SignalRow, error) {
	var (
		row      SignalRow
		closeStr string
		mmsStr   string
	)

	if err := rows.Scan(
		&row.ID,
		&row.Ticker,
		&row.BarTS,
		&row.Status,
		&closeStr,
		&mmsStr,
		&row.Window,
		&row.RunTS,
		&row.CreatedAt,
	); err != nil {
		return SignalRow{}, err
	}

	var convErr error
	row.Close, convErr = decimal.NewFromString(closeStr)
	if convErr != nil {
		return SignalRow{}, fmt.Errorf("parse close price: %w", convErr)
	}
	row.MMS, convErr = decimal.NewFromString(mmsStr)
	if convErr != nil {
		return SignalRow{}, fmt.Errorf("parse mms: %w", convErr)
	}

	return row, nil
}

var _ SignalStore = (*Store)(nil)
var _ AdvisoryLocker = (*Store)(nil)
