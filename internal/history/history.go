// Package history records bounded per-market price series for charting.
package history

import (
	"sync"
	"time"
)

const (
	// DefaultCap bounds each series; the oldest sample is evicted first.
	DefaultCap = 200
	// DefaultMinGap throttles sampling to one point per market per minute.
	DefaultMinGap = 60 * time.Second
)

// Sample is one observed price point.
type Sample struct {
	Time  time.Time `json:"t"`
	Price int       `json:"price"`
}

// Recorder keeps an append-only bounded series per key. Series are
// created lazily on first observation and live for the process lifetime.
// Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	series map[string][]Sample
	cap    int
	minGap time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		series: make(map[string][]Sample),
		cap:    DefaultCap,
		minGap: DefaultMinGap,
	}
}

// Record appends a sample unless the previous one for the key is
// younger than the minimum gap.
func (r *Recorder) Record(key string, priceCents int, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := r.series[key]
	if n := len(samples); n > 0 && ts.Sub(samples[n-1].Time) < r.minGap {
		return
	}

	samples = append(samples, Sample{Time: ts, Price: priceCents})
	if len(samples) > r.cap {
		samples = samples[len(samples)-r.cap:]
	}
	r.series[key] = samples
}

// Read returns a copy of the series for key, oldest first. Unknown keys
// return an empty slice.
func (r *Recorder) Read(key string) []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := r.series[key]
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}
