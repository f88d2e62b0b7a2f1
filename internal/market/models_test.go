package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validBar(symbol string, offset int) Bar {
	price := decimal.RequireFromString("10.5")
	return Bar{
		Symbol: symbol,
		Time:   time.Date(2025, 11, 27, 10, 0, 0, 0, time.UTC).Add(time.Duration(offset) * 30 * time.Minute),
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: 100,
	}
}

func TestSeriesValidateOK(t *testing.T) {
	series := Series{Symbol: "PETR4", Bars: []Bar{validBar("PETR4", 0), validBar("PETR4", 1), validBar("PETR4", 2)}}
	if err := series.Validate(); err != nil {
		t.Fatalf("valid series rejected: %v", err)
	}
}

func TestSeriesValidateEmptySymbol(t *testing.T) {
	series := Series{Bars: []Bar{validBar("", 0)}}
	if err := series.Validate(); err == nil {
		t.Fatal("empty symbol should be rejected")
	}
}

func TestSeriesValidateDuplicateTimestamp(t *testing.T) {
	series := Series{Symbol: "PETR4", Bars: []Bar{validBar("PETR4", 0), validBar("PETR4", 0)}}
	if err := series.Validate(); err == nil {
		t.Fatal("duplicate timestamps should be rejected")
	}
}

func TestSeriesValidateOutOfOrder(t *testing.T) {
	series := Series{Symbol: "PETR4", Bars: []Bar{validBar("PETR4", 1), validBar("PETR4", 0)}}
	if err := series.Validate(); err == nil {
		t.Fatal("out-of-order bars should be rejected")
	}
}

func TestSeriesValidateNegativeValues(t *testing.T) {
	bad := validBar("PETR4", 0)
	bad.Close = decimal.RequireFromString("-1")
	if err := (Series{Symbol: "PETR4", Bars: []Bar{bad}}).Validate(); err == nil {
		t.Fatal("negative price should be rejected")
	}

	bad = validBar("PETR4", 0)
	bad.Volume = -1
	if err := (Series{Symbol: "PETR4", Bars: []Bar{bad}}).Validate(); err == nil {
		t.Fatal("negative volume should be rejected")
	}
}
