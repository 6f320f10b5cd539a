package main

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/tradestream/internal/indicator"
	"github.com/rickgao/tradestream/internal/marketdata"
)

// studies holds the indicators of one symbol.
type studies struct {
	sma  *indicator.SMA
	ema  *indicator.EMA
	vwap indicator.VWAP
	boll *indicator.Bollinger
}

// studySet tracks indicators per symbol over bar closes.
type studySet struct {
	period  int
	k       decimal.Decimal
	symbols map[string]*studies
}

func newStudySet(period int, k decimal.Decimal) (*studySet, error) {
	// Validate once so per-symbol construction cannot fail.
	if _, err := indicator.NewBollinger(period, k); err != nil {
		return nil, err
	}
	return &studySet{period: period, k: k, symbols: make(map[string]*studies)}, nil
}

// update feeds a bar and formats the readings that are ready.
func (s *studySet) update(b marketdata.Bar) string {
	st, ok := s.symbols[b.Symbol]
	if !ok {
		st = &studies{}
		st.sma, _ = indicator.NewSMA(s.period)
		st.ema, _ = indicator.NewEMA(s.period)
		st.boll, _ = indicator.NewBollinger(s.period, s.k)
		s.symbols[b.Symbol] = st
	}

	var parts []string
	if v, ok := st.sma.Update(b.Close); ok {
		parts = append(parts, "sma="+v.StringFixed(4))
	}
	if v, ok := st.ema.Update(b.Close); ok {
		parts = append(parts, "ema="+v.StringFixed(4))
	}
	if v, ok := st.vwap.Update(b.Close, b.Volume); ok {
		parts = append(parts, "vwap="+v.StringFixed(4))
	}
	if bands, ok := st.boll.Update(b.Close); ok {
		parts = append(parts,
			"bb_upper="+bands.Upper.StringFixed(4),
			"bb_lower="+bands.Lower.StringFixed(4),
		)
	}
	if len(parts) == 0 {
		return "warming up"
	}
	return strings.Join(parts, " ")
}
