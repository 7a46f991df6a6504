package stream

import "time"

// rateWindow is the trailing window over which the arrival rate is estimated.
const rateWindow = 5 * time.Second

// rateTracker estimates events/second from arrival timestamps retained
// within a trailing window. Samples are receipt times, not event timestamps.
type rateTracker struct {
	samples []time.Time
}

// record appends n arrival samples at time t and drops expired ones.
func (r *rateTracker) record(t time.Time, n int) {
	for i := 0; i < n; i++ {
		r.samples = append(r.samples, t)
	}
	r.prune(t)
}

// prune discards samples older than the window.
func (r *rateTracker) prune(now time.Time) {
	cutoff := now.Add(-rateWindow)
	keep := r.samples[:0]
	for _, s := range r.samples {
		if s.After(cutoff) {
			keep = append(keep, s)
		}
	}
	r.samples = keep
}

// rate returns events/second: (n-1) intervals over the observed span.
// Fewer than two samples in the window, or a zero span, yields 0.
func (r *rateTracker) rate(now time.Time) float64 {
	r.prune(now)
	if len(r.samples) < 2 {
		return 0
	}
	spanMs := r.samples[len(r.samples)-1].Sub(r.samples[0]).Seconds() * 1000
	if spanMs <= 0 {
		return 0
	}
	return float64(len(r.samples)-1) / spanMs * 1000
}

// reset discards all samples.
func (r *rateTracker) reset() {
	r.samples = nil
}
