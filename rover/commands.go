package rover

import "fmt"

// DriveCommand is one differential-drive actuation request. Speed is signed,
// the sign selects the direction. HeadingDelta is a percentage of the maximum
// steering deflection.
type DriveCommand struct {
	Speed        int // -255..255, |Speed| <= drive.max_speed
	HeadingDelta int // -100..100
}

// Stop is the fail-safe drive command.
var Stop = DriveCommand{}

func (c DriveCommand) String() string {
	return fmt.Sprintf("drive(speed=%v heading=%v)", c.Speed, c.HeadingDelta)
}

// ServoCommand positions one servo channel.
type ServoCommand struct {
	Channel  uint8 // 0..3
	Position uint8
}

func (c ServoCommand) String() string {
	return fmt.Sprintf("servo(channel=%v position=%v)", c.Channel, c.Position)
}

// Button identifies a gamepad action button.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	numButtons
)

var buttonNames = [numButtons]string{"a", "b", "x", "y"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// ParseButton resolves a config-file button name.
func ParseButton(name string) (Button, error) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), nil
		}
	}
	return 0, fmt.Errorf("unknown button name %q", name)
}

// ButtonSet is an immutable set of pressed buttons, one bit per Button.
type ButtonSet uint8

func (s ButtonSet) Pressed(b Button) bool {
	return s&(1<<b) != 0
}

func (s ButtonSet) with(b Button, pressed bool) ButtonSet {
	if pressed {
		return s | 1<<b
	}
	return s &^ (1 << b)
}

// risen returns the buttons that are pressed in s but were not pressed in
// prev, in declaration order.
func (s ButtonSet) risen(prev ButtonSet) []Button {
	var result []Button
	for b := Button(0); b < numButtons; b++ {
		if s.Pressed(b) && !prev.Pressed(b) {
			result = append(result, b)
		}
	}
	return result
}
