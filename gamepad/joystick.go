package gamepad

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/splace/joysticks"

	"github.com/antongulenko/rover/rover"
)

// Axis and button layout of the legacy joystick backend. The throttle hat
// replaces the trigger pair: pushing it forward maps to the forward trigger,
// pulling it back to the reverse trigger.
const (
	steeringHat = 1
	throttleHat = 3
)

var joystickButtons = [...]rover.Button{
	1: rover.ButtonA,
	2: rover.ButtonB,
	3: rover.ButtonX,
	4: rover.ButtonY,
}

// JoystickPad adapts the /dev/input/js* interface. The joystick library
// reports button presses but no releases, so each press is forwarded as a
// press/release pulse; rising-edge consumers behave identically.
type JoystickPad struct {
	events chan rover.Event
	lost   chan struct{}
	quit   chan struct{}
}

// ConnectJoystick opens the joystick device with the given index.
func ConnectJoystick(index int) (*JoystickPad, error) {
	js := joysticks.Connect(index)
	if js == nil {
		return nil, fmt.Errorf("failed to open joystick with index %v", index)
	}
	log.Infof("Opened joystick index %v (%v buttons, %v axes)", index, len(js.Buttons), len(js.HatAxes))
	if !js.HatExists(steeringHat) {
		return nil, fmt.Errorf("steering axis (%v) does not exist on joystick %v", steeringHat, index)
	}
	if !js.HatExists(throttleHat) {
		return nil, fmt.Errorf("throttle axis (%v) does not exist on joystick %v", throttleHat, index)
	}

	p := &JoystickPad{
		events: make(chan rover.Event, 16),
		lost:   make(chan struct{}),
		quit:   make(chan struct{}),
	}
	steerMoved := js.OnMove(steeringHat)
	throttleMoved := js.OnMove(throttleHat)
	go p.pumpAxes(steerMoved, throttleMoved)
	for number, button := range joystickButtons {
		if number == 0 || !js.ButtonExists(uint8(number)) {
			continue
		}
		go p.pumpButton(js.OnButton(uint8(number)), button)
	}
	go func() {
		js.ParcelOutEvents() // returns when the device disappears
		close(p.lost)
	}()
	return p, nil
}

func (p *JoystickPad) pumpAxes(steer, throttle <-chan joysticks.Event) {
	for {
		select {
		case <-p.quit:
			return
		case event, ok := <-steer:
			if !ok {
				return
			}
			coords := event.(joysticks.CoordsEvent)
			p.emit(rover.AxisEvent{Axis: rover.AxisSteering, Value: float64(coords.X)})
		case event, ok := <-throttle:
			if !ok {
				return
			}
			coords := event.(joysticks.CoordsEvent)
			forward, reverse := splitThrottle(float64(coords.Y))
			p.emit(rover.AxisEvent{Axis: rover.AxisForward, Value: forward})
			p.emit(rover.AxisEvent{Axis: rover.AxisReverse, Value: reverse})
		}
	}
}

func (p *JoystickPad) pumpButton(pressed <-chan joysticks.Event, button rover.Button) {
	for {
		select {
		case <-p.quit:
			return
		case _, ok := <-pressed:
			if !ok {
				return
			}
			p.emit(rover.ButtonEvent{Button: button, Pressed: true})
			p.emit(rover.ButtonEvent{Button: button, Pressed: false})
		}
	}
}

func (p *JoystickPad) emit(event rover.Event) {
	select {
	case p.events <- event:
	case <-p.quit:
	}
}

// splitThrottle maps one -1..1 hat axis onto the two trigger axes. Stick up
// reports negative Y, so the sign is inverted.
func splitThrottle(y float64) (forward, reverse float64) {
	if y < 0 {
		return -y, 0
	}
	return 0, y
}

func (p *JoystickPad) NextEvent(ctx context.Context) (rover.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.lost:
		return nil, rover.ErrDeviceLost
	case event := <-p.events:
		return event, nil
	}
}

// Close stops forwarding events. The underlying reader goroutines end when
// the device node closes.
func (p *JoystickPad) Close() error {
	close(p.quit)
	return nil
}
