package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	if cfg.Pipeline.Window != 20 {
		t.Fatalf("expected default window 20, got %d", cfg.Pipeline.Window)
	}
	if len(cfg.Pipeline.Symbols) != 4 {
		t.Fatalf("expected 4 default symbols, got %v", cfg.Pipeline.Symbols)
	}
	if cfg.Quote.RangeDays != 5 {
		t.Fatalf("expected default lookback 5 days, got %d", cfg.Quote.RangeDays)
	}
	if cfg.Quote.Interval != "30m" {
		t.Fatalf("expected default interval 30m, got %s", cfg.Quote.Interval)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Fatalf("expected default scheduler interval 1h, got %s", cfg.Scheduler.Interval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Pipeline.Symbols = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty symbol list should be rejected")
	}

	cfg = base()
	cfg.Pipeline.Window = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero window should be rejected")
	}

	cfg = base()
	cfg.Snapshot.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty snapshot dir should be rejected")
	}

	cfg = base()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram without credentials should be rejected")
	}
}

func TestWorkerCountBoundedBySymbols(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	cfg.Pipeline.Symbols = []string{"PETR4", "VALE3"}
	cfg.Pipeline.Workers = 8
	if got := cfg.WorkerCount(); got != 2 {
		t.Fatalf("worker pool should not exceed symbol count, got %d", got)
	}

	cfg.Pipeline.Workers = 1
	if got := cfg.WorkerCount(); got != 1 {
		t.Fatalf("expected 1 worker, got %d", got)
	}
}
