package metrics

import "time"

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Seconds is the elapsed time in the unit Prometheus histograms expect.
func (t *Timer) Seconds() float64 {
	return t.Duration().Seconds()
}
