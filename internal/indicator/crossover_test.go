package indicator

import (
	"testing"

	"github.com/shopspring/decimal"

	"mms-alerts/internal/market"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func definedPoint(s string) Point {
	return Point{Defined: true, Value: dec(s)}
}

func TestCompare(t *testing.T) {
	if Compare(dec("10.1"), dec("10.0")) != Above {
		t.Fatal("10.1 vs 10.0 should be Above")
	}
	if Compare(dec("9.9"), dec("10.0")) != Below {
		t.Fatal("9.9 vs 10.0 should be Below")
	}
	if Compare(dec("10.0"), dec("10.00")) != Equal {
		t.Fatal("10.0 vs 10.00 should be Equal")
	}
}

func TestDetectTransitions(t *testing.T) {
	tests := []struct {
		name      string
		prevClose string
		prevSMA   string
		curClose  string
		curSMA    string
		want      Crossover
	}{
		{"below to above crosses up", "9", "10", "11", "10", CrossUp},
		{"equal to above crosses up", "10", "10", "11", "10", CrossUp},
		{"above to below crosses down", "11", "10", "9", "10", CrossDown},
		{"equal to below crosses down", "10", "10", "9", "10", CrossDown},
		{"above stays above", "11", "10", "12", "10", NoCrossover},
		{"below stays below", "9", "10", "8", "10", NoCrossover},
		{"flat equal sequence", "10", "10", "10", "10", NoCrossover},
		{"above lands on equal", "11", "10", "10", "10", NoCrossover},
		{"below lands on equal", "9", "10", "10", "10", NoCrossover},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(dec(tt.prevClose), definedPoint(tt.prevSMA), dec(tt.curClose), definedPoint(tt.curSMA))
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDetectIndeterminateWithoutDefinedPoints(t *testing.T) {
	undefined := Point{}
	if got := Detect(dec("9"), undefined, dec("11"), definedPoint("10")); got != Indeterminate {
		t.Fatalf("undefined previous SMA should be Indeterminate, got %v", got)
	}
	if got := Detect(dec("9"), definedPoint("10"), dec("11"), undefined); got != Indeterminate {
		t.Fatalf("undefined current SMA should be Indeterminate, got %v", got)
	}
}

func TestClassifyIsTotal(t *testing.T) {
	tests := []struct {
		crossover Crossover
		want      market.Signal
	}{
		{CrossUp, market.SignalBuy},
		{CrossDown, market.SignalSell},
		{NoCrossover, market.SignalHold},
		{Indeterminate, market.SignalHold},
	}

	for _, tt := range tests {
		if got := Classify(tt.crossover); got != tt.want {
			t.Fatalf("crossover %v: expected %s, got %s", tt.crossover, tt.want, got)
		}
	}
}
