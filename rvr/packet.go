// Package rvr speaks the framed serial protocol of a Sphero-RVR-style rover.
// Commands are fire-and-forget: the control loop never waits for responses,
// the robot's firmware owns command execution.
package rvr

// Framing bytes. Start/end/escape markers never appear literally inside a
// frame; payload bytes colliding with them are escaped.
const (
	startOfPacket = 0x8D
	endOfPacket   = 0xD8
	escape        = 0xAB

	escapedStart  = 0x05
	escapedEnd    = 0x50
	escapedEscape = 0x23
)

// Packet flags.
const (
	flagIsActivity  = 0x08
	flagHasTargetID = 0x10
)

// Target processors.
const (
	targetNordic = 0x01 // power management
	targetST     = 0x02 // drive and IO
)

// Device and command identifiers used by this controller.
const (
	devPower = 0x13
	cmdWake  = 0x0D
	cmdSleep = 0x01

	devDrive            = 0x16
	cmdDriveWithHeading = 0x07

	devIO          = 0x1A
	cmdSetServoPWM = 0x0E
)

// Drive direction flags of the drive-with-heading command.
const (
	driveFlagForward = 0x01
	driveFlagReverse = 0x02
)

type packet struct {
	target   byte
	deviceID byte
	command  byte
	payload  []byte
}

// encode frames the packet: SOP, escaped body (flags, target, device,
// command, sequence, payload, checksum), EOP.
func (p packet) encode(seq byte) []byte {
	body := []byte{flagIsActivity | flagHasTargetID, p.target, p.deviceID, p.command, seq}
	body = append(body, p.payload...)
	body = append(body, checksum(body))

	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, startOfPacket)
	for _, b := range body {
		frame = appendEscaped(frame, b)
	}
	return append(frame, endOfPacket)
}

func appendEscaped(frame []byte, b byte) []byte {
	switch b {
	case startOfPacket:
		return append(frame, escape, escapedStart)
	case endOfPacket:
		return append(frame, escape, escapedEnd)
	case escape:
		return append(frame, escape, escapedEscape)
	}
	return append(frame, b)
}

// checksum is the complement of the byte sum of the unescaped body.
func checksum(body []byte) byte {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return ^sum
}
