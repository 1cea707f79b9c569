package supervisor

import "time"

// Clock is a monotonic elapsed-time source shared by every slot in a run.
// It is created once at the start of a run and never reset.
type Clock struct {
	start time.Time
}

// NewClock returns a Clock referenced to the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Elapsed returns the number of seconds since the clock was created.
func (c *Clock) Elapsed() float64 {
	return time.Since(c.start).Seconds()
}
