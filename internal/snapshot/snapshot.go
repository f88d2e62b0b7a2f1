package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"mms-alerts/internal/market"
)

// ErrExists indicates a snapshot for the same run timestamp is already
// published. Snapshots are immutable; a collision signals a scheduling
// misconfiguration and is not retryable.
var ErrExists = errors.New("snapshot: already exists for this run timestamp")

// ObjectStore is an append-style blob store: objects are written once under a
// unique name and never mutated.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte) error
}

const barTimeLayout = "2006-01-02T15:04:05"

var csvHeader = []string{"ticker", "datetime", "status", "close", "mms", "periodo_mms"}

// FileName derives the snapshot object name from the run start time.
func FileName(runStart time.Time) string {
	return "alerts_" + runStart.UTC().Format("2006-01-02_15-04-05") + ".csv"
}

// Encode serialises one run's alert records as CSV: a header row plus one row
// per symbol, prices rendered at source precision.
func Encode(records []market.AlertRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{
			rec.Ticker,
			rec.BarTS.UTC().Format(barTimeLayout),
			string(rec.Status),
			rec.Close.String(),
			rec.MMS.String(),
			strconv.Itoa(rec.Window),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writer persists one snapshot per run into an object store.
type Writer struct {
	store  ObjectStore
	logger zerolog.Logger
}

// NewWriter constructs a snapshot writer.
func NewWriter(store ObjectStore, logger zerolog.Logger) *Writer {
	return &Writer{store: store, logger: logger.With().Str("component", "snapshot_writer").Logger()}
}

// Write encodes the records and publishes them under the name derived from
// the run start time. The store guarantees all-or-nothing visibility; a name
// collision surfaces as ErrExists.
func (w *Writer) Write(ctx context.Context, runStart time.Time, records []market.AlertRecord) (string, error) {
	if w.store == nil {
		return "", fmt.Errorf("snapshot: store not configured")
	}

	data, err := Encode(records)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := FileName(runStart)
	if err := w.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("persist snapshot %s: %w", name, err)
	}

	w.logger.Info().Str("file", name).Int("rows", len(records)).Msg("snapshot published")
	return name, nil
}
