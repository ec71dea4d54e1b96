package classifier

import (
	"context"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region timed-evaluator
// TimedEvaluator records the latency of every Evaluate call on the wrapped
// evaluator.
type TimedEvaluator struct {
	next Evaluator

	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// LatencySummary holds per-call latency quantiles.
type LatencySummary struct {
	Calls int64
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// NewTimedEvaluator wraps next. Latencies from 1µs to 10s are tracked with
// three significant digits.
func NewTimedEvaluator(next Evaluator) *TimedEvaluator {
	return &TimedEvaluator{
		next: next,
		hist: hdrhistogram.New(1, int64(10*time.Second/time.Microsecond), 3),
	}
}

// Evaluate implements Evaluator.
func (t *TimedEvaluator) Evaluate(ctx context.Context, model string, rec event.Record) (float64, error) {
	start := time.Now()
	v, err := t.next.Evaluate(ctx, model, rec)
	us := time.Since(start).Microseconds()
	if us < 1 {
		us = 1
	}
	t.mu.Lock()
	// values above the trackable range are dropped
	_ = t.hist.RecordValue(us)
	t.mu.Unlock()
	return v, err
}

// Close closes the wrapped evaluator.
func (t *TimedEvaluator) Close() error {
	return t.next.Close()
}

// Summary returns the latency quantiles recorded so far.
func (t *TimedEvaluator) Summary() LatencySummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return LatencySummary{
		Calls: t.hist.TotalCount(),
		Mean:  time.Duration(t.hist.Mean() * float64(time.Microsecond)),
		P50:   us(t.hist.ValueAtQuantile(50)),
		P90:   us(t.hist.ValueAtQuantile(90)),
		P99:   us(t.hist.ValueAtQuantile(99)),
		Max:   us(t.hist.Max()),
	}
}

// #endregion timed-evaluator
