package rvr

import (
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/antongulenko/rover/rover"
)

// The rover needs a moment after the wake command before it accepts drive
// commands.
const wakeDelay = 2 * time.Second

// Link sends actuation commands to the rover over a serial port. Safe for
// use by one sender goroutine plus Close from another.
type Link struct {
	mu   sync.Mutex
	port serial.Port
	seq  byte
}

// Connect opens the serial port and wakes the rover.
func Connect(cfg rover.LinkConfig) (*Link, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %v: %v", cfg.Port, err)
	}
	l := &Link{port: port}
	if err := l.send(packet{target: targetNordic, deviceID: devPower, command: cmdWake}); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to wake rover: %v", err)
	}
	time.Sleep(wakeDelay)
	log.Infof("Connected to rover on %v (%v baud)", cfg.Port, cfg.BaudRate)
	return l, nil
}

// SendDrive encodes one drive-with-heading command. The wire format carries
// an unsigned speed plus a direction flag and an absolute 0..359 heading.
func (l *Link) SendDrive(cmd rover.DriveCommand) error {
	speed := cmd.Speed
	flags := byte(0)
	switch {
	case speed > 0:
		flags = driveFlagForward
	case speed < 0:
		flags = driveFlagReverse
		speed = -speed
	}
	if speed > 255 {
		speed = 255
	}
	heading := headingDegrees(cmd.HeadingDelta)
	return l.send(packet{
		target:   targetST,
		deviceID: devDrive,
		command:  cmdDriveWithHeading,
		payload:  []byte{byte(speed), byte(heading >> 8), byte(heading), flags},
	})
}

func (l *Link) SendServo(cmd rover.ServoCommand) error {
	return l.send(packet{
		target:   targetST,
		deviceID: devIO,
		command:  cmdSetServoPWM,
		payload:  []byte{cmd.Channel, cmd.Position},
	})
}

// Close stops the rover and puts it to sleep before releasing the port, all
// best-effort.
func (l *Link) Close() error {
	if err := l.SendDrive(rover.Stop); err != nil {
		log.Debugln("Failed to stop rover during close:", err)
	}
	if err := l.send(packet{target: targetNordic, deviceID: devPower, command: cmdSleep}); err != nil {
		log.Debugln("Failed to put rover to sleep during close:", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Close()
}

func (l *Link) send(p packet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	if _, err := l.port.Write(p.encode(l.seq)); err != nil {
		return fmt.Errorf("serial write failed: %v", err)
	}
	return nil
}

// headingDegrees maps the -100..100 heading delta onto the rover's 0..359
// degree heading: right turns are 0..90, left turns wrap below 360.
func headingDegrees(delta int) uint16 {
	degrees := int(math.Round(float64(delta) * 90.0 / 100.0))
	if degrees < 0 {
		return uint16(360 + degrees)
	}
	return uint16(degrees)
}
