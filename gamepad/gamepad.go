// Package gamepad connects the control loop to a physical game controller.
// The primary backend reads the kernel evdev interface; a secondary backend
// uses the legacy /dev/input/js* joystick interface.
package gamepad

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antongulenko/rover/rover"
)

// Connect resolves the configured device selector and opens the matching
// backend. "js:<index>" selects the joystick interface; "auto" (or an empty
// path) scans evdev nodes for a device name containing cfg.DeviceName; any
// other value is used as an evdev node path directly.
func Connect(cfg rover.ControllerConfig) (rover.InputDevice, error) {
	path := cfg.DevicePath
	if index, ok := strings.CutPrefix(path, "js:"); ok {
		parsed, err := strconv.Atoi(index)
		if err != nil {
			return nil, fmt.Errorf("invalid joystick selector %q: %v", path, err)
		}
		return ConnectJoystick(parsed)
	}
	if path == "" || path == "auto" {
		found, err := findDevice(cfg.DeviceName)
		if err != nil {
			return nil, err
		}
		path = found
	}
	return ConnectEvdev(path)
}
