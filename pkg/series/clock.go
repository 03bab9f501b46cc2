package series

// Clock is the shared sampling clock. Every advance appends the new tick to
// the labels window that forms the x-axis of all charts.
type Clock struct {
	now    Tick
	labels *window[Tick]
}

// NewClock starts at tick 0 with labels [0].
func NewClock(maxSamples int) *Clock {
	c := &Clock{labels: newWindow[Tick](maxSamples)}
	c.labels.Push(0)
	return c
}

// Now returns the current tick.
func (c *Clock) Now() Tick { return c.now }

// Advance moves the clock forward by one and returns the new tick.
func (c *Clock) Advance() Tick {
	c.now++
	c.labels.Push(c.now)
	return c.now
}

// Labels returns a copy of the x-axis, oldest first.
func (c *Clock) Labels() []Tick { return c.labels.Values() }
