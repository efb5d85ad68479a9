package gamepad

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kenshaw/evdev"
	log "github.com/sirupsen/logrus"

	"github.com/antongulenko/rover/rover"
)

// Event codes of an XBox-style pad: right trigger drives forward, left
// trigger reverse, left stick X steers, the four action buttons select servo
// presets.
const (
	codeSteering = 0x00 // ABS_X
	codeReverse  = 0x02 // ABS_Z
	codeForward  = 0x05 // ABS_RZ

	codeButtonA = 304 // BTN_SOUTH
	codeButtonB = 305 // BTN_EAST
	codeButtonX = 307 // BTN_NORTH
	codeButtonY = 308 // BTN_WEST
)

// Raw value ranges reported by the pad.
const (
	triggerMax = 255
	stickMax   = 32767
)

var buttonCodes = map[uint16]rover.Button{
	codeButtonA: rover.ButtonA,
	codeButtonB: rover.ButtonB,
	codeButtonX: rover.ButtonX,
	codeButtonY: rover.ButtonY,
}

// EvdevPad reads controller events from a /dev/input/event* node.
type EvdevPad struct {
	dev    *evdev.Evdev
	events <-chan *evdev.EventEnvelope
}

// ConnectEvdev opens the given evdev node.
func ConnectEvdev(path string) (*EvdevPad, error) {
	dev, err := evdev.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input device %v: %v", path, err)
	}
	log.Infof("Opened input device %v (%v)", path, dev.Name())
	return &EvdevPad{dev: dev}, nil
}

// findDevice scans all evdev nodes for a device whose name contains the
// given pattern (case-insensitive).
func findDevice(namePattern string) (string, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return "", err
	}
	sort.Strings(paths)
	var names []string
	for _, path := range paths {
		dev, err := evdev.OpenFile(path)
		if err != nil {
			continue
		}
		name := dev.Name()
		dev.Close()
		if strings.Contains(strings.ToLower(name), strings.ToLower(namePattern)) {
			log.Infof("Found controller %q at %v", name, path)
			return path, nil
		}
		names = append(names, name)
	}
	return "", fmt.Errorf("no input device matching %q found (available: %v)", namePattern, names)
}

// NextEvent blocks until the next translatable controller event. A closed
// event stream means the device node is gone.
func (p *EvdevPad) NextEvent(ctx context.Context) (rover.Event, error) {
	if p.events == nil {
		p.events = p.dev.Poll(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case envelope, ok := <-p.events:
			if !ok || envelope == nil {
				return nil, rover.ErrDeviceLost
			}
			if event, ok := translate(envelope.Event.Type, envelope.Event.Code, envelope.Event.Value); ok {
				return event, nil
			}
		}
	}
}

func (p *EvdevPad) Close() error {
	return p.dev.Close()
}

// translate converts one raw evdev event into a normalized controller event.
// Events outside the configured mapping are dropped.
func translate(typ evdev.EventType, code uint16, value int32) (rover.Event, bool) {
	switch typ {
	case evdev.EventAbsolute:
		switch code {
		case codeSteering:
			return rover.AxisEvent{Axis: rover.AxisSteering, Value: float64(value) / stickMax}, true
		case codeForward:
			return rover.AxisEvent{Axis: rover.AxisForward, Value: float64(value) / triggerMax}, true
		case codeReverse:
			return rover.AxisEvent{Axis: rover.AxisReverse, Value: float64(value) / triggerMax}, true
		}
	case evdev.EventKey:
		if button, ok := buttonCodes[code]; ok {
			return rover.ButtonEvent{Button: button, Pressed: value != 0}, true
		}
	}
	return nil, false
}
