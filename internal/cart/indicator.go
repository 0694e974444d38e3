package cart

import (
	"sync"
	"time"
)

// DefaultIndicatorDelay is how long the "added to cart" flag stays raised.
const DefaultIndicatorDelay = 2 * time.Second

// Indicator is the short-lived "added to cart" flag. Each Trigger restarts the
// countdown; Stop cancels it for good.
type Indicator struct {
	mu      sync.Mutex
	delay   time.Duration
	active  bool
	timer   *time.Timer
	gen     int
	stopped bool
}

func NewIndicator(delay time.Duration) *Indicator {
	if delay <= 0 {
		delay = DefaultIndicatorDelay
	}
	return &Indicator{delay: delay}
}

// Trigger raises the flag and schedules it to clear after the delay.
func (i *Indicator) Trigger() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return
	}
	if i.timer != nil {
		i.timer.Stop()
	}
	i.gen++
	gen := i.gen
	i.active = true
	i.timer = time.AfterFunc(i.delay, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		// A newer Trigger owns the flag now.
		if i.gen == gen {
			i.active = false
		}
	})
}

func (i *Indicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// Stop clears the flag and cancels any pending timer. Later Triggers are ignored.
func (i *Indicator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopped = true
	i.active = false
	i.gen++
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
}
