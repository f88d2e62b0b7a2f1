package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalRow is one persisted classification, mirroring a snapshot row plus
// the run that produced it.
type SignalRow struct {
	ID        int64
	Ticker    string
	BarTS     time.Time
	Status    string
	Close     decimal.Decimal
	MMS       decimal.Decimal
	Window    int
	RunTS     time.Time
	CreatedAt time.Time
}
