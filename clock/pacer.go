// Package clock converts elapsed wall time into whole fixed-rate ticks.
package clock

import "time"

// Pacer counts ticks of a fixed frequency. The fraction of a tick left over
// after each Advance is carried into the next call, so no time is lost to
// rounding even when the step size does not divide the period.
type Pacer struct {
	hz  int64
	acc int64 // nanoseconds scaled by hz
}

func NewPacer(hz int) *Pacer {
	if hz < 1 {
		hz = 1
	}
	return &Pacer{hz: int64(hz)}
}

func (p *Pacer) Hz() int { return int(p.hz) }

// Period is the length of one tick, rounded down to the nanosecond.
func (p *Pacer) Period() time.Duration {
	return time.Duration(int64(time.Second) / p.hz)
}

// Advance adds elapsed time and returns how many ticks became due.
// Negative durations are ignored.
func (p *Pacer) Advance(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	p.acc += int64(elapsed) * p.hz
	ticks := p.acc / int64(time.Second)
	p.acc %= int64(time.Second)
	return int(ticks)
}

// Pending is the time accumulated towards the next tick.
func (p *Pacer) Pending() time.Duration {
	return time.Duration(p.acc / p.hz)
}

// Until is the time left before the next tick is due.
func (p *Pacer) Until() time.Duration {
	rest := int64(time.Second) - p.acc
	return time.Duration((rest + p.hz - 1) / p.hz)
}

func (p *Pacer) Reset() { p.acc = 0 }
