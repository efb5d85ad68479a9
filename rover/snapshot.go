package rover

import (
	"sync/atomic"
	"time"
)

// InputSnapshot is the full controller state at one point in time. Values are
// immutable once published; the sampler replaces the whole snapshot on every
// device event.
type InputSnapshot struct {
	Forward  uint8 // forward trigger, 0..255
	Reverse  uint8 // reverse trigger, 0..255
	Steering int   // -100..100 percent
	Buttons  ButtonSet
	Time     time.Time
}

// snapshotCell publishes the current snapshot from the single sampler
// goroutine to any number of readers without blocking either side.
type snapshotCell struct {
	p atomic.Pointer[InputSnapshot]
}

func (c *snapshotCell) store(s InputSnapshot) {
	c.p.Store(&s)
}

// load returns the latest published snapshot, or nil before the first event.
func (c *snapshotCell) load() *InputSnapshot {
	return c.p.Load()
}
