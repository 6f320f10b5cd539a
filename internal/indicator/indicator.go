// Package indicator computes rolling technical indicators over decimal
// price series.
package indicator

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidPeriod is returned for non-positive periods.
var ErrInvalidPeriod = errors.New("period must be positive")

// window is a fixed-size ring of the most recent values with a running sum.
type window struct {
	values []decimal.Decimal
	next   int
	count  int
	sum    decimal.Decimal
}

func newWindow(period int) *window {
	return &window{values: make([]decimal.Decimal, period)}
}

func (w *window) push(v decimal.Decimal) {
	if w.count == len(w.values) {
		w.sum = w.sum.Sub(w.values[w.next])
	} else {
		w.count++
	}
	w.values[w.next] = v
	w.sum = w.sum.Add(v)
	w.next = (w.next + 1) % len(w.values)
}

func (w *window) full() bool {
	return w.count == len(w.values)
}

func (w *window) mean() decimal.Decimal {
	return w.sum.Div(decimal.NewFromInt(int64(w.count)))
}

// SMA is a simple moving average.
type SMA struct {
	w *window
}

// NewSMA creates a simple moving average over period values.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &SMA{w: newWindow(period)}, nil
}

// Update adds a value and returns the average once period values were seen.
func (s *SMA) Update(v decimal.Decimal) (decimal.Decimal, bool) {
	s.w.push(v)
	if !s.w.full() {
		return decimal.Zero, false
	}
	return s.w.mean(), true
}

// EMA is an exponential moving average with alpha = 2/(period+1), seeded
// with the simple average of the first period values.
type EMA struct {
	period int
	alpha  decimal.Decimal
	seed   *window
	value  decimal.Decimal
	ready  bool
}

// NewEMA creates an exponential moving average.
func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &EMA{
		period: period,
		alpha:  decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1))),
		seed:   newWindow(period),
	}, nil
}

// Update adds a value and returns the average once it is seeded.
func (e *EMA) Update(v decimal.Decimal) (decimal.Decimal, bool) {
	if !e.ready {
		e.seed.push(v)
		if !e.seed.full() {
			return decimal.Zero, false
		}
		e.value = e.seed.mean()
		e.ready = true
		return e.value, true
	}

	// ema = prev + alpha * (v - prev)
	e.value = e.value.Add(e.alpha.Mul(v.Sub(e.value)))
	return e.value, true
}

// VWAP is a cumulative volume-weighted average price.
type VWAP struct {
	pv     decimal.Decimal
	volume decimal.Decimal
}

// Update adds a print and returns the running VWAP. It reports false until
// some volume has traded.
func (v *VWAP) Update(price, volume decimal.Decimal) (decimal.Decimal, bool) {
	if volume.IsNegative() {
		return v.Value()
	}
	v.pv = v.pv.Add(price.Mul(volume))
	v.volume = v.volume.Add(volume)
	return v.Value()
}

// Value returns the current VWAP.
func (v *VWAP) Value() (decimal.Decimal, bool) {
	if v.volume.IsZero() {
		return decimal.Zero, false
	}
	return v.pv.Div(v.volume), true
}

// Reset starts a new session.
func (v *VWAP) Reset() {
	v.pv = decimal.Zero
	v.volume = decimal.Zero
}

// Bands is one Bollinger reading.
type Bands struct {
	Upper  decimal.Decimal
	Middle decimal.Decimal
	Lower  decimal.Decimal
}

// Bollinger computes SMA ± k standard deviations (population) over period
// values.
type Bollinger struct {
	w *window
	k decimal.Decimal
}

// NewBollinger creates Bollinger bands; k is usually 2.
func NewBollinger(period int, k decimal.Decimal) (*Bollinger, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if k.IsNegative() {
		return nil, errors.New("band width must not be negative")
	}
	return &Bollinger{w: newWindow(period), k: k}, nil
}

// Update adds a value and returns the bands once period values were seen.
func (b *Bollinger) Update(v decimal.Decimal) (Bands, bool) {
	b.w.push(v)
	if !b.w.full() {
		return Bands{}, false
	}

	mean := b.w.mean()
	variance := decimal.Zero
	for _, x := range b.w.values {
		d := x.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}
	variance = variance.Div(decimal.NewFromInt(int64(b.w.count)))

	width := b.k.Mul(sqrt(variance))
	return Bands{
		Upper:  mean.Add(width),
		Middle: mean,
		Lower:  mean.Sub(width),
	}, true
}

// sqrt uses Newton's method; decimal has no square root.
func sqrt(v decimal.Decimal) decimal.Decimal {
	if !v.IsPositive() {
		return decimal.Zero
	}

	f, _ := v.Float64()
	x := decimal.NewFromFloat(math.Sqrt(f))
	if !x.IsPositive() {
		x = v
	}
	two := decimal.NewFromInt(2)
	for i := 0; i < 20; i++ {
		next := x.Add(v.Div(x)).Div(two)
		if next.Sub(x).Abs().LessThan(decimal.New(1, -12)) {
			return next
		}
		x = next
	}
	return x
}
