package rover

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigInvalid wraps all configuration load and validation failures. The
// daemon treats it as fatal before any task starts.
var ErrConfigInvalid = errors.New("invalid configuration")

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Drive      DriveConfig      `yaml:"drive"`
	Servo      ServoConfig      `yaml:"servo"`
	Safety     SafetyConfig     `yaml:"safety"`
	Link       LinkConfig       `yaml:"link"`
	Control    ControlConfig    `yaml:"control"`
}

type ControllerConfig struct {
	// DevicePath selects the input device node. "auto" (or empty) scans
	// /dev/input/event* for a name matching DeviceName. The "js:<index>"
	// form selects the legacy joystick interface instead of evdev.
	DevicePath string `yaml:"device_path"`
	DeviceName string `yaml:"device_name"`

	Deadzone         float64 `yaml:"deadzone"`          // percent of full stick deflection
	TriggerThreshold uint8   `yaml:"trigger_threshold"` // raw trigger units, 0..255
}

type DriveConfig struct {
	MaxSpeed            int     `yaml:"max_speed"`
	MinSpeed            int     `yaml:"min_speed"` // static friction floor
	SpeedScale          float64 `yaml:"speed_scale"`
	SteeringSensitivity float64 `yaml:"steering_sensitivity"`
}

type ServoConfig struct {
	Enabled bool                     `yaml:"enabled"`
	Servos  []ServoDecl              `yaml:"servos"`
	Buttons map[string]ButtonMapping `yaml:"buttons"`
}

type ServoDecl struct {
	Channel   uint8          `yaml:"channel"`
	Positions ServoPositions `yaml:"positions"`
}

type ServoPositions struct {
	Neutral   uint8 `yaml:"neutral"`
	Position1 uint8 `yaml:"position1"`
	Position2 uint8 `yaml:"position2"`
}

func (p ServoPositions) byName(name string) (uint8, bool) {
	switch name {
	case "neutral":
		return p.Neutral, true
	case "position1":
		return p.Position1, true
	case "position2":
		return p.Position2, true
	}
	return 0, false
}

type ButtonMapping struct {
	Channel  uint8  `yaml:"channel"`
	Position string `yaml:"position"` // neutral, position1 or position2
}

type SafetyConfig struct {
	InputTimeout     float64 `yaml:"input_timeout"` // seconds, 0 disables
	StopOnDisconnect bool    `yaml:"stop_on_disconnect"`
}

func (c SafetyConfig) Timeout() time.Duration {
	return time.Duration(c.InputTimeout * float64(time.Second))
}

type LinkConfig struct {
	Port              string `yaml:"port"`
	BaudRate          int    `yaml:"baud_rate"`
	ReconnectAttempts int    `yaml:"reconnect_attempts"`
	ReconnectDelayMs  int    `yaml:"reconnect_delay_ms"`
}

func (c LinkConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

type ControlConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms"`
	QueueSize      int `yaml:"queue_size"`
}

func (c ControlConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// DefaultConfig holds the values used for options missing from the config
// file. The controller mapping matches an XBox-style pad on evdev.
var DefaultConfig = Config{
	Controller: ControllerConfig{
		DevicePath:       "auto",
		DeviceName:       "Victrix",
		Deadzone:         5,
		TriggerThreshold: 10,
	},
	Drive: DriveConfig{
		MaxSpeed:            255,
		SpeedScale:          1.0,
		SteeringSensitivity: 1.0,
	},
	Safety: SafetyConfig{
		InputTimeout:     1.5,
		StopOnDisconnect: true,
	},
	Link: LinkConfig{
		Port:              "/dev/ttyS0",
		BaudRate:          115200,
		ReconnectAttempts: 3,
		ReconnectDelayMs:  2000,
	},
	Control: ControlConfig{
		TickIntervalMs: 20,
		QueueSize:      4,
	},
}

// LoadConfig reads and validates the YAML config file. The result is
// immutable for the lifetime of the process.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	cfg := DefaultConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...interface{}) {
		if err == nil && !ok {
			err = fmt.Errorf("%w: %v", ErrConfigInvalid, fmt.Sprintf(format, args...))
		}
	}

	check(c.Controller.Deadzone >= 0 && c.Controller.Deadzone <= 100,
		"controller.deadzone must be 0..100, got %v", c.Controller.Deadzone)
	check(c.Drive.MaxSpeed >= 1 && c.Drive.MaxSpeed <= 255,
		"drive.max_speed must be 1..255, got %v", c.Drive.MaxSpeed)
	check(c.Drive.MinSpeed >= 0 && c.Drive.MinSpeed <= c.Drive.MaxSpeed,
		"drive.min_speed must be 0..max_speed, got %v", c.Drive.MinSpeed)
	check(c.Drive.SpeedScale > 0, "drive.speed_scale must be positive, got %v", c.Drive.SpeedScale)
	check(c.Drive.SteeringSensitivity >= 0,
		"drive.steering_sensitivity must not be negative, got %v", c.Drive.SteeringSensitivity)
	check(c.Safety.InputTimeout >= 0,
		"safety.input_timeout must not be negative, got %v", c.Safety.InputTimeout)
	check(c.Link.Port != "", "link.port is required")
	check(c.Link.BaudRate > 0, "link.baud_rate must be positive, got %v", c.Link.BaudRate)
	check(c.Link.ReconnectAttempts >= 0,
		"link.reconnect_attempts must not be negative, got %v", c.Link.ReconnectAttempts)
	check(c.Control.TickIntervalMs > 0,
		"control.tick_interval_ms must be positive, got %v", c.Control.TickIntervalMs)
	check(c.Control.QueueSize > 0, "control.queue_size must be positive, got %v", c.Control.QueueSize)

	declared := make(map[uint8]ServoDecl)
	for _, s := range c.Servo.Servos {
		check(s.Channel <= 3, "servo channel must be 0..3, got %v", s.Channel)
		_, dup := declared[s.Channel]
		check(!dup, "servo channel %v declared twice", s.Channel)
		declared[s.Channel] = s
	}
	for name, m := range c.Servo.Buttons {
		_, buttonErr := ParseButton(name)
		check(buttonErr == nil, "servo button mapping: %v", buttonErr)
		decl, ok := declared[m.Channel]
		check(ok, "servo button %q mapped to undeclared channel %v", name, m.Channel)
		if ok {
			_, known := decl.Positions.byName(m.Position)
			check(known, "servo button %q mapped to unknown position %q", name, m.Position)
		}
	}
	return err
}
