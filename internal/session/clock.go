package session

// Clock tracks remaining time for the active section. It performs no
// scheduling of its own; an external heartbeat drives it by calling Tick
// roughly once per second, which keeps the runtime synchronous and testable
// without real time.
type Clock struct {
	timeLeftSec int
	ticking     bool
	expired     bool
}

// Arm resets the clock for a new section.
func (c *Clock) Arm(durationSec int) {
	c.timeLeftSec = durationSec
	c.ticking = true
	c.expired = false
}

// Tick consumes one second of heartbeat. A stopped clock ignores ticks. When
// the countdown reaches zero the clock marks itself expired and stops; expiry
// is a signal for the state machine to consume, never an advance by itself.
func (c *Clock) Tick() {
	if !c.ticking {
		return
	}
	c.timeLeftSec--
	if c.timeLeftSec <= 0 {
		c.timeLeftSec = 0
		c.expired = true
		c.ticking = false
	}
}

// Stop halts the countdown without marking expiry.
func (c *Clock) Stop() {
	c.ticking = false
}

// TimeLeftSec returns the remaining seconds for the active section.
func (c *Clock) TimeLeftSec() int { return c.timeLeftSec }

// Ticking reports whether the countdown is running.
func (c *Clock) Ticking() bool { return c.ticking }

// Expired reports whether the current section's countdown has reached zero.
func (c *Clock) Expired() bool { return c.expired }
