package main

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rickgao/tradestream/internal/marketdata"
)

func bar(symbol string, close, volume int64) marketdata.Bar {
	return marketdata.Bar{Symbol: symbol, Close: decimal.NewFromInt(close), Volume: decimal.NewFromInt(volume)}
}

func TestStudySet(t *testing.T) {
	s, err := newStudySet(3, decimal.NewFromInt(2))
	if err != nil {
		t.Fatal(err)
	}

	got := s.update(bar("AAPL", 10, 100))
	if !strings.Contains(got, "vwap=10.0000") || strings.Contains(got, "sma=") {
		t.Errorf("first bar = %q", got)
	}

	s.update(bar("AAPL", 11, 100))
	got = s.update(bar("AAPL", 12, 100))
	for _, want := range []string{"sma=11.0000", "ema=11.0000", "vwap=11.0000", "bb_upper=", "bb_lower="} {
		if !strings.Contains(got, want) {
			t.Errorf("third bar = %q, missing %q", got, want)
		}
	}

	// Symbols are tracked independently.
	if got := s.update(bar("SPY", 500, 0)); got != "warming up" {
		t.Errorf("new symbol = %q, want warming up", got)
	}
}

func TestStudySet_InvalidPeriod(t *testing.T) {
	if _, err := newStudySet(0, decimal.NewFromInt(2)); err == nil {
		t.Error("newStudySet(0) should fail")
	}
}

func TestSplit(t *testing.T) {
	got := split(" AAPL, ,SPY,")
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "SPY" {
		t.Errorf("split = %v", got)
	}
	if split("") != nil {
		t.Error("split(\"\") should be nil")
	}
}
