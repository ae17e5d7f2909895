package steamctl

import (
	"encoding/binary"
	"fmt"
)

const (
	// frameMarker opens every vendor frame.
	frameMarker byte = 0xc0

	// tagNonReport in the low nibble of the byte after the marker identifies
	// a housekeeping frame that carries no input data.
	tagNonReport byte = 0x05

	// Normalization divisors for the analog subfields.
	paddleScale float64 = 255
	axisScale   float64 = 32760
)

// ProtocolError reports a malformed vendor frame. Frames failing to decode
// are dropped; the error never tears down the session.
type ProtocolError struct {
	Reason string
	Frame  []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid controller frame (%s): % x", e.Reason, e.Frame)
}

// cursor reads fixed-size subfields out of a frame, failing on underflow
// instead of panicking on short input.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) take(n int) ([]byte, error) {
	if c.pos+n > len(c.data) {
		return nil, &ProtocolError{
			Reason: fmt.Sprintf("truncated at offset %d, need %d bytes", c.pos, n),
			Frame:  c.data,
		}
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Decoder turns notification frames into discrete events. It keeps the
// previous button bitmask across frames so button changes are edge-triggered:
// a bit emits a pressed event only when it newly sets and a released event
// only when it newly clears. Not safe for concurrent use.
type Decoder struct {
	prevButtons uint32
}

// Decode parses one frame and returns its events. A housekeeping frame or a
// frame without the report tag yields no events and no error. A frame with a
// bad marker or a truncated subfield yields a *ProtocolError; the decoder
// state is left unchanged in that case.
func (d *Decoder) Decode(data []byte) ([]Event, error) {
	cur := &cursor{data: data}

	b, err := cur.take(1)
	if err != nil {
		return nil, err
	}
	if b[0] != frameMarker {
		return nil, &ProtocolError{Reason: "bad marker", Frame: data}
	}

	b, err = cur.take(2)
	if err != nil {
		return nil, err
	}
	if b[0]&0x0f == tagNonReport {
		return nil, nil
	}
	raw := binary.LittleEndian.Uint16(b)
	if raw&0x0f != flagReport {
		return nil, nil
	}
	flags := raw &^ 0x0f

	var events []Event
	nextButtons := d.prevButtons

	if flags&flagButtons != 0 {
		b, err = cur.take(3)
		if err != nil {
			return nil, err
		}
		nextButtons = uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
		events = d.diffButtons(events, nextButtons)
	}

	if flags&flagPaddles != 0 {
		b, err = cur.take(2)
		if err != nil {
			return nil, err
		}
		events = append(events,
			buttonEvent(ButtonLeftTrigger2, float64(b[0])/paddleScale),
			buttonEvent(ButtonRightTrigger2, float64(b[1])/paddleScale),
		)
	}

	if flags&flagJoystick != 0 {
		x, y, err := cur.axisPair()
		if err != nil {
			return nil, err
		}
		events = append(events, axisEvent(AxisLeftStickX, x), axisEvent(AxisLeftStickY, y))
	}

	if flags&flagLeftPad != 0 {
		x, y, err := cur.axisPair()
		if err != nil {
			return nil, err
		}
		events = append(events, axisEvent(AxisLeftPadX, x), axisEvent(AxisLeftPadY, y))
	}

	if flags&flagRightPad != 0 {
		x, y, err := cur.axisPair()
		if err != nil {
			return nil, err
		}
		events = append(events, axisEvent(AxisRightPadX, x), axisEvent(AxisRightPadY, y))
	}

	d.prevButtons = nextButtons
	return events, nil
}

// diffButtons emits one event per bit that changed against the accumulator.
// The accumulator is replaced by Decode once the whole frame has parsed.
func (d *Decoder) diffButtons(events []Event, buttons uint32) []Event {
	for _, bb := range buttonBits {
		now := buttons&bb.mask != 0
		was := d.prevButtons&bb.mask != 0
		switch {
		case now && !was:
			events = append(events, buttonEvent(bb.button, 1.0))
		case !now && was:
			events = append(events, buttonEvent(bb.button, 0.0))
		}
	}
	return events
}

// axisPair consumes two little-endian signed 16-bit values and normalizes
// them to [-1, 1].
func (c *cursor) axisPair() (x, y float64, err error) {
	b, err := c.take(4)
	if err != nil {
		return 0, 0, err
	}
	x = float64(int16(binary.LittleEndian.Uint16(b[0:2]))) / axisScale
	y = float64(int16(binary.LittleEndian.Uint16(b[2:4]))) / axisScale
	return x, y, nil
}
