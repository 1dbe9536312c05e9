package pipeline

import "time"

// Metrics collects per-stage wall-clock durations and item counts for
// one run. They are reported once and discarded.
type Metrics struct {
	Vision  time.Duration
	OCR     time.Duration
	Resolve time.Duration
	Gate    time.Duration
	Total   time.Duration

	Parsed     int
	Known      int
	Learned    int
	Questioned int
	Skipped    int
}

// stopwatch measures one stage.
type stopwatch struct {
	start time.Time
}

func startStopwatch() stopwatch {
	return stopwatch{start: time.Now()}
}

func (s stopwatch) elapsed() time.Duration {
	return time.Since(s.start)
}
