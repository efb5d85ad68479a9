package rover

import (
	"context"
	"errors"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrDeviceLost is reported when the input device disappears mid-run.
var ErrDeviceLost = errors.New("input device lost")

// Axis identifies one analog control of the gamepad.
type Axis uint8

const (
	AxisSteering Axis = iota // stick, value -1..1
	AxisForward              // forward trigger, value 0..1
	AxisReverse              // reverse trigger, value 0..1
)

// Event is a raw input device event, either an AxisEvent or a ButtonEvent.
type Event interface{}

type AxisEvent struct {
	Axis  Axis
	Value float64
}

type ButtonEvent struct {
	Button  Button
	Pressed bool
}

// InputDevice is the input collaborator. NextEvent blocks until the next
// device event, the context is cancelled, or the device is lost
// (ErrDeviceLost).
type InputDevice interface {
	NextEvent(ctx context.Context) (Event, error)
	Close() error
}

// Sampler folds raw device events into the current InputSnapshot. It applies
// the steering deadzone and the trigger threshold, so idle sticks and resting
// triggers always publish as neutral. The running state survives device
// reconnects; Run is invoked once per device connection.
type Sampler struct {
	deadzone  float64 // percent
	threshold uint8

	cur  InputSnapshot
	cell snapshotCell
	now  func() time.Time
}

func NewSampler(cfg ControllerConfig) *Sampler {
	return &Sampler{
		deadzone:  cfg.Deadzone,
		threshold: cfg.TriggerThreshold,
		now:       time.Now,
	}
}

// Snapshot returns the latest published snapshot, or nil before the first
// event. Never blocks the sampler goroutine.
func (s *Sampler) Snapshot() *InputSnapshot {
	return s.cell.load()
}

// Run consumes device events until the context is cancelled or the device is
// lost. Returns ErrDeviceLost on device loss; reconnection is the caller's
// job.
func (s *Sampler) Run(ctx context.Context, dev InputDevice) error {
	for {
		event, err := dev.NextEvent(ctx)
		if err != nil {
			if errors.Is(err, ErrDeviceLost) {
				log.Warnln("Input device lost:", err)
				return ErrDeviceLost
			}
			return err
		}
		s.apply(event)
	}
}

func (s *Sampler) apply(event Event) {
	switch e := event.(type) {
	case AxisEvent:
		switch e.Axis {
		case AxisSteering:
			s.cur.Steering = s.steeringPercent(e.Value)
		case AxisForward:
			s.cur.Forward = s.triggerValue(e.Value)
		case AxisReverse:
			s.cur.Reverse = s.triggerValue(e.Value)
		}
	case ButtonEvent:
		s.cur.Buttons = s.cur.Buttons.with(e.Button, e.Pressed)
	default:
		return
	}
	s.publish()
}

func (s *Sampler) publish() {
	now := s.now()
	// Keep snapshot timestamps monotonically non-decreasing.
	if now.Before(s.cur.Time) {
		now = s.cur.Time
	}
	s.cur.Time = now
	s.cell.store(s.cur)
}

// steeringPercent converts a -1..1 stick deflection to -100..100, clamping
// magnitudes below the deadzone to neutral.
func (s *Sampler) steeringPercent(val float64) int {
	val = clampFloat(val, -1, 1)
	percent := val * 100
	if math.Abs(percent) < s.deadzone {
		return 0
	}
	return int(math.Round(percent))
}

// triggerValue converts a 0..1 trigger position to raw 0..255, clamping
// values below the press threshold to zero.
func (s *Sampler) triggerValue(val float64) uint8 {
	raw := uint8(math.Round(clampFloat(val, 0, 1) * 255))
	if raw < s.threshold {
		return 0
	}
	return raw
}

func clampFloat(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
