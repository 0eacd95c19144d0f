package scanner

import (
	"sync"
	"time"
)

type observation struct {
	price float64
	at    time.Time
}

// window keeps a bounded per-symbol history of observed prices. Time-series
// strategies accumulate it across successive scans; they never reach back
// into the cache or network for history.
type window struct {
	mu   sync.Mutex
	data map[string][]observation
	size int
}

func newWindow(size int) *window {
	if size < 2 {
		size = 2
	}
	return &window{
		data: make(map[string][]observation),
		size: size,
	}
}

// push records an observation and returns a copy of the series, oldest
// first. Observations at a time not after the latest recorded one are
// ignored so replayed quotes don't distort the series.
func (w *window) push(key string, price float64, at time.Time) []observation {
	w.mu.Lock()
	defer w.mu.Unlock()

	series := w.data[key]
	if n := len(series); n > 0 && !at.After(series[n-1].at) {
		out := make([]observation, n)
		copy(out, series)
		return out
	}

	series = append(series, observation{price: price, at: at})
	if len(series) > w.size {
		series = series[len(series)-w.size:]
	}
	w.data[key] = series

	out := make([]observation, len(series))
	copy(out, series)
	return out
}

func seriesKey(exchange, symbol string) string {
	return exchange + "|" + symbol
}

func seriesMean(series []observation) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range series {
		sum += obs.price
	}
	return sum / float64(len(series))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
