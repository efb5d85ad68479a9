package rover

import "math"

// Mapper is the pure input-to-command transformation. Mapping the same pair
// of snapshots always yields the same commands; all state lives in the
// snapshots themselves.
type Mapper struct {
	drive     DriveConfig
	threshold uint8
	enabled   bool
	presets   [numButtons]*ServoCommand
}

func NewMapper(cfg *Config) *Mapper {
	m := &Mapper{
		drive:     cfg.Drive,
		threshold: cfg.Controller.TriggerThreshold,
		enabled:   cfg.Servo.Enabled,
	}
	declared := make(map[uint8]ServoDecl)
	for _, s := range cfg.Servo.Servos {
		declared[s.Channel] = s
	}
	for name, mapping := range cfg.Servo.Buttons {
		button, err := ParseButton(name)
		if err != nil {
			continue // rejected by config validation
		}
		decl, ok := declared[mapping.Channel]
		if !ok {
			continue
		}
		position, ok := decl.Positions.byName(mapping.Position)
		if !ok {
			continue
		}
		m.presets[button] = &ServoCommand{Channel: mapping.Channel, Position: position}
	}
	return m
}

// Emergency reports whether both triggers exceed the press threshold, the
// operator's cancel gesture.
func (m *Mapper) Emergency(snap *InputSnapshot) bool {
	return snap != nil && snap.Forward > m.threshold && snap.Reverse > m.threshold
}

// Map derives the drive command and servo commands for one control tick.
// prev is the snapshot of the previous tick and determines button edges;
// servo presets fire on a rising edge only, while the triggers are mapped
// every tick at their current level.
func (m *Mapper) Map(prev, cur *InputSnapshot) (DriveCommand, []ServoCommand) {
	if cur == nil {
		return Stop, nil
	}
	return DriveCommand{
		Speed:        m.speed(cur),
		HeadingDelta: m.heading(cur),
	}, m.servos(prev, cur)
}

func (m *Mapper) speed(snap *InputSnapshot) int {
	// Both triggers pressed cancels all movement, regardless of magnitudes.
	if m.Emergency(snap) {
		return 0
	}
	var raw int
	switch {
	case snap.Reverse > 0:
		raw = -int(snap.Reverse)
	case snap.Forward > 0:
		raw = int(snap.Forward)
	default:
		return 0
	}
	speed := int(math.Round(float64(raw) * m.drive.SpeedScale))
	if speed == 0 {
		return 0
	}
	sign := 1
	if speed < 0 {
		sign = -1
		speed = -speed
	}
	if speed < m.drive.MinSpeed {
		speed = m.drive.MinSpeed
	}
	if speed > m.drive.MaxSpeed {
		speed = m.drive.MaxSpeed
	}
	return sign * speed
}

func (m *Mapper) heading(snap *InputSnapshot) int {
	delta := int(math.Round(float64(snap.Steering) * m.drive.SteeringSensitivity))
	if delta > 100 {
		delta = 100
	} else if delta < -100 {
		delta = -100
	}
	return delta
}

func (m *Mapper) servos(prev, cur *InputSnapshot) []ServoCommand {
	if !m.enabled {
		return nil
	}
	var prevButtons ButtonSet
	if prev != nil {
		prevButtons = prev.Buttons
	}
	var commands []ServoCommand
	for _, button := range cur.Buttons.risen(prevButtons) {
		if preset := m.presets[button]; preset != nil {
			commands = append(commands, *preset)
		}
	}
	return commands
}
