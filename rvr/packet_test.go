package rvr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// unescape reverses the framing: strips SOP/EOP and resolves escape pairs.
func unescape(t *testing.T, frame []byte) []byte {
	t.Helper()
	if len(frame) < 2 || frame[0] != startOfPacket || frame[len(frame)-1] != endOfPacket {
		t.Fatalf("bad framing: % x", frame)
	}
	var body []byte
	inner := frame[1 : len(frame)-1]
	for i := 0; i < len(inner); i++ {
		b := inner[i]
		if b != escape {
			body = append(body, b)
			continue
		}
		i++
		switch inner[i] {
		case escapedStart:
			body = append(body, startOfPacket)
		case escapedEnd:
			body = append(body, endOfPacket)
		case escapedEscape:
			body = append(body, escape)
		default:
			t.Fatalf("bad escape pair: %02x %02x", escape, inner[i])
		}
	}
	return body
}

func TestPacketEncoding(t *testing.T) {
	a := assert.New(t)
	p := packet{
		target:   targetST,
		deviceID: devDrive,
		command:  cmdDriveWithHeading,
		payload:  []byte{0x64, 0x00, 0x2D, 0x01},
	}
	frame := p.encode(7)

	body := unescape(t, frame)
	a.Equal(byte(flagIsActivity|flagHasTargetID), body[0])
	a.Equal(byte(targetST), body[1])
	a.Equal(byte(devDrive), body[2])
	a.Equal(byte(cmdDriveWithHeading), body[3])
	a.Equal(byte(7), body[4])
	a.Equal(p.payload, body[5:len(body)-1])
	a.Equal(checksum(body[:len(body)-1]), body[len(body)-1])
}

func TestPacketEscaping(t *testing.T) {
	a := assert.New(t)
	p := packet{
		target:   targetST,
		deviceID: devIO,
		command:  cmdSetServoPWM,
		payload:  []byte{startOfPacket, endOfPacket, escape},
	}
	frame := p.encode(1)

	// The framing markers must not appear literally inside the frame.
	for _, b := range frame[1 : len(frame)-1] {
		a.NotEqual(byte(startOfPacket), b)
		a.NotEqual(byte(endOfPacket), b)
	}
	body := unescape(t, frame)
	a.Equal(p.payload, body[5:len(body)-1])
}

func TestChecksum(t *testing.T) {
	a := assert.New(t)
	a.Equal(^byte(6), checksum([]byte{1, 2, 3}))
	a.Equal(^byte(0), checksum(nil))
	// Overflow wraps around.
	sum := 254 + 200
	a.Equal(^byte(sum), checksum([]byte{254, 200}))
}

func TestHeadingDegrees(t *testing.T) {
	a := assert.New(t)
	test := func(delta int, expected uint16) {
		a.Equal(expected, headingDegrees(delta), "delta %v", delta)
	}
	test(0, 0)
	test(100, 90)   // full right
	test(-100, 270) // full left
	test(50, 45)
	test(-50, 315)
	test(25, 23)
	test(-25, 337)
}
