package rover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mapperConfig() *Config {
	cfg := DefaultConfig
	cfg.Drive = DriveConfig{
		MaxSpeed:            150,
		SpeedScale:          1.0,
		SteeringSensitivity: 0.5,
	}
	cfg.Servo = ServoConfig{
		Enabled: true,
		Servos: []ServoDecl{
			{Channel: 0, Positions: ServoPositions{Neutral: 128, Position1: 50, Position2: 200}},
		},
		Buttons: map[string]ButtonMapping{
			"a": {Channel: 0, Position: "position1"},
			"b": {Channel: 0, Position: "position2"},
		},
	}
	return &cfg
}

func snap(forward, reverse uint8, steering int, buttons ...Button) *InputSnapshot {
	s := &InputSnapshot{
		Forward:  forward,
		Reverse:  reverse,
		Steering: steering,
		Time:     time.Now(),
	}
	for _, b := range buttons {
		s.Buttons = s.Buttons.with(b, true)
	}
	return s
}

func TestMapperSpeedClamping(t *testing.T) {
	a := assert.New(t)
	m := NewMapper(mapperConfig())

	drive, _ := m.Map(nil, snap(200, 0, 0))
	a.Equal(150, drive.Speed)

	drive, _ = m.Map(nil, snap(0, 200, 0))
	a.Equal(-150, drive.Speed)

	drive, _ = m.Map(nil, snap(100, 0, 0))
	a.Equal(100, drive.Speed)
}

func TestMapperEmergencyCancel(t *testing.T) {
	a := assert.New(t)
	m := NewMapper(mapperConfig())

	// Both triggers above the press threshold cancel all movement,
	// independent of magnitudes.
	for _, pair := range [][2]uint8{{50, 50}, {255, 255}, {11, 200}, {200, 11}} {
		s := snap(pair[0], pair[1], 0)
		a.True(m.Emergency(s), "pair %v", pair)
		drive, _ := m.Map(nil, s)
		a.Equal(0, drive.Speed, "pair %v", pair)
	}

	// A trigger at or below the threshold does not count as pressed.
	s := snap(10, 200, 0)
	a.False(m.Emergency(s))
	drive, _ := m.Map(nil, s)
	a.Equal(-150, drive.Speed)
}

func TestMapperSteering(t *testing.T) {
	a := assert.New(t)
	m := NewMapper(mapperConfig())

	drive, _ := m.Map(nil, snap(0, 0, 50))
	a.Equal(25, drive.HeadingDelta)

	drive, _ = m.Map(nil, snap(0, 0, -50))
	a.Equal(-25, drive.HeadingDelta)

	cfg := mapperConfig()
	cfg.Drive.SteeringSensitivity = 3.0
	m = NewMapper(cfg)
	drive, _ = m.Map(nil, snap(0, 0, 50))
	a.Equal(100, drive.HeadingDelta)
	drive, _ = m.Map(nil, snap(0, 0, -50))
	a.Equal(-100, drive.HeadingDelta)
}

func TestMapperMinSpeed(t *testing.T) {
	a := assert.New(t)
	cfg := mapperConfig()
	cfg.Drive.MinSpeed = 40
	m := NewMapper(cfg)

	drive, _ := m.Map(nil, snap(20, 0, 0))
	a.Equal(40, drive.Speed)
	drive, _ = m.Map(nil, snap(0, 20, 0))
	a.Equal(-40, drive.Speed)

	// Zero stays zero, the floor only applies to actual movement.
	drive, _ = m.Map(nil, snap(0, 0, 0))
	a.Equal(0, drive.Speed)
}

func TestMapperPure(t *testing.T) {
	a := assert.New(t)
	m := NewMapper(mapperConfig())
	prev := snap(0, 0, 0)
	cur := snap(120, 0, 30, ButtonA)

	drive1, servos1 := m.Map(prev, cur)
	drive2, servos2 := m.Map(prev, cur)
	a.Equal(drive1, drive2)
	a.Equal(servos1, servos2)
}

func TestMapperServoRisingEdge(t *testing.T) {
	a := assert.New(t)
	m := NewMapper(mapperConfig())

	released := snap(0, 0, 0)
	pressed := snap(0, 0, 0, ButtonA)

	// Rising edge fires exactly one command.
	_, servos := m.Map(released, pressed)
	a.Equal([]ServoCommand{{Channel: 0, Position: 50}}, servos)

	// Holding the button emits nothing further.
	_, servos = m.Map(pressed, pressed)
	a.Empty(servos)

	// Release and press again fires again.
	_, servos = m.Map(pressed, released)
	a.Empty(servos)
	_, servos = m.Map(released, pressed)
	a.Len(servos, 1)
}

func TestMapperServoDisabled(t *testing.T) {
	a := assert.New(t)
	cfg := mapperConfig()
	cfg.Servo.Enabled = false
	m := NewMapper(cfg)

	_, servos := m.Map(snap(0, 0, 0), snap(0, 0, 0, ButtonA))
	a.Empty(servos)
}

func TestMapperUnmappedButton(t *testing.T) {
	a := assert.New(t)
	m := NewMapper(mapperConfig())

	_, servos := m.Map(snap(0, 0, 0), snap(0, 0, 0, ButtonY))
	a.Empty(servos)
}

func TestMapperNoInputYet(t *testing.T) {
	a := assert.New(t)
	m := NewMapper(mapperConfig())

	drive, servos := m.Map(nil, nil)
	a.Equal(Stop, drive)
	a.Empty(servos)
	a.False(m.Emergency(nil))
}
