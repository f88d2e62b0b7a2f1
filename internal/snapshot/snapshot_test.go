package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mms-alerts/internal/market"
)

func sampleRecords() []market.AlertRecord {
	return []market.AlertRecord{
		{
			Ticker: "PETR4",
			BarTS:  time.Date(2025, 11, 27, 14, 30, 0, 0, time.UTC),
			Status: market.SignalHold,
			Close:  decimal.RequireFromString("32.28"),
			MMS:    decimal.RequireFromString("32.26"),
			Window: 20,
		},
		{
			Ticker: "VALE3",
			BarTS:  time.Date(2025, 11, 27, 14, 30, 0, 0, time.UTC),
			Status: market.SignalBuy,
			Close:  decimal.RequireFromString("61.5"),
			MMS:    decimal.RequireFromString("61.275"),
			Window: 20,
		},
	}
}

func TestFileName(t *testing.T) {
	runStart := time.Date(2025, 11, 27, 15, 0, 0, 0, time.UTC)
	if got, want := FileName(runStart), "alerts_2025-11-27_15-00-00.csv"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "ticker,datetime,status,close,mms,periodo_mms" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if lines[1] != "PETR4,2025-11-27T14:30:00,HOLD,32.28,32.26,20" {
		t.Fatalf("unexpected first row: %s", lines[1])
	}
	if lines[2] != "VALE3,2025-11-27T14:30:00,BUY,61.5,61.275,20" {
		t.Fatalf("unexpected second row: %s", lines[2])
	}
}

func TestEncodeEmptyRunKeepsHeader(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(string(data)) != "ticker,datetime,status,close,mms,periodo_mms" {
		t.Fatalf("empty run should still emit the header, got %q", string(data))
	}
}

func TestFSStorePutAndCollision(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := store.Put(ctx, "alerts_2025-11-27_15-00-00.csv", []byte("data")); err != nil {
		t.Fatalf("first put should succeed: %v", err)
	}

	err = store.Put(ctx, "alerts_2025-11-27_15-00-00.csv", []byte("other"))
	if !errors.Is(err, ErrExists) {
		t.Fatalf("second put with same name should fail with ErrExists, got %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "alerts_2025-11-27_15-00-00.csv"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(content) != "data" {
		t.Fatalf("collision must not overwrite, got %q", string(content))
	}
}

func TestFSStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Put(context.Background(), "a.csv", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.csv" {
		t.Fatalf("expected only the published file, got %v", entries)
	}
}

func TestWriterPublishesSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writer := NewWriter(store, zerolog.Nop())

	runStart := time.Date(2025, 11, 27, 15, 0, 0, 0, time.UTC)
	name, err := writer.Write(context.Background(), runStart, sampleRecords())
	if err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if name != "alerts_2025-11-27_15-00-00.csv" {
		t.Fatalf("unexpected snapshot name %s", name)
	}

	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	// Re-running the writer for the same run timestamp must not overwrite.
	if _, err := writer.Write(context.Background(), runStart, sampleRecords()); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists on duplicate run, got %v", err)
	}
}
