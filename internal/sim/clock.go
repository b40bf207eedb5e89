package sim

import "time"

// TickNotifier receives tick boundaries from the clock.
type TickNotifier interface {
	HandleTickStart(tick uint64)
}

// ClockConfig tunes the fixed-rate tick clock.
type ClockConfig struct {
	TickRate int
}

const defaultTickRate = 20

// Clock drives tick-start notifications at a fixed rate. Ticks are numbered
// from 1 and delivered from a single goroutine, one at a time.
type Clock struct {
	notifier TickNotifier
	rate     int
	tick     uint64
}

// NewClock constructs a clock for the given notifier.
func NewClock(notifier TickNotifier, cfg ClockConfig) *Clock {
	rate := cfg.TickRate
	if rate <= 0 {
		rate = defaultTickRate
	}
	return &Clock{notifier: notifier, rate: rate}
}

// Rate reports the ticks-per-second rate the clock runs at.
func (c *Clock) Rate() int {
	if c == nil {
		return 0
	}
	return c.rate
}

// Run delivers tick-start notifications until the stop channel closes.
func (c *Clock) Run(stop <-chan struct{}) {
	if c == nil || c.notifier == nil {
		return
	}
	ticker := time.NewTicker(time.Second / time.Duration(c.rate))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick++
			c.notifier.HandleTickStart(c.tick)
		}
	}
}
