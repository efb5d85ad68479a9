package gamepad

import (
	"testing"

	"github.com/kenshaw/evdev"
	"github.com/stretchr/testify/assert"

	"github.com/antongulenko/rover/rover"
)

func TestTranslateAxes(t *testing.T) {
	a := assert.New(t)

	event, ok := translate(evdev.EventAbsolute, codeSteering, 32767)
	a.True(ok)
	a.Equal(rover.AxisEvent{Axis: rover.AxisSteering, Value: 1.0}, event)

	event, ok = translate(evdev.EventAbsolute, codeSteering, -16384)
	a.True(ok)
	axis := event.(rover.AxisEvent)
	a.InDelta(-0.5, axis.Value, 0.001)

	event, ok = translate(evdev.EventAbsolute, codeForward, 255)
	a.True(ok)
	a.Equal(rover.AxisEvent{Axis: rover.AxisForward, Value: 1.0}, event)

	event, ok = translate(evdev.EventAbsolute, codeReverse, 128)
	a.True(ok)
	axis = event.(rover.AxisEvent)
	a.Equal(rover.AxisReverse, axis.Axis)
	a.InDelta(0.502, axis.Value, 0.001)
}

func TestTranslateButtons(t *testing.T) {
	a := assert.New(t)

	event, ok := translate(evdev.EventKey, codeButtonA, 1)
	a.True(ok)
	a.Equal(rover.ButtonEvent{Button: rover.ButtonA, Pressed: true}, event)

	event, ok = translate(evdev.EventKey, codeButtonY, 0)
	a.True(ok)
	a.Equal(rover.ButtonEvent{Button: rover.ButtonY, Pressed: false}, event)
}

func TestTranslateIgnoresUnmapped(t *testing.T) {
	a := assert.New(t)

	_, ok := translate(evdev.EventAbsolute, 0x01, 100) // ABS_Y, unused
	a.False(ok)
	_, ok = translate(evdev.EventKey, 310, 1) // shoulder button, unused
	a.False(ok)
	_, ok = translate(evdev.EventSync, 0, 0)
	a.False(ok)
}

func TestSplitThrottle(t *testing.T) {
	a := assert.New(t)
	test := func(y, forward, reverse float64) {
		f, r := splitThrottle(y)
		a.Equal(forward, f, "y=%v", y)
		a.Equal(reverse, r, "y=%v", y)
	}
	test(0, 0, 0)
	test(-1, 1, 0) // stick pushed up
	test(-0.4, 0.4, 0)
	test(1, 0, 1) // stick pulled back
	test(0.7, 0, 0.7)
}

func TestConnectBadJoystickSelector(t *testing.T) {
	a := assert.New(t)
	_, err := Connect(rover.ControllerConfig{DevicePath: "js:first"})
	a.Error(err)
}
