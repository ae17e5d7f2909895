// Package steamctl decodes the Steam Controller's vendor notification
// protocol and drives the connect/subscribe/decode session against the
// synchronous BLE stack.
package steamctl

import "fmt"

// Button identifies a digital input. Pad touch and click are distinct
// buttons; the analog paddle pressures report as LeftTrigger2/RightTrigger2.
type Button int

const (
	ButtonSouth Button = iota
	ButtonNorth
	ButtonEast
	ButtonWest
	ButtonLeftTrigger
	ButtonLeftTrigger2
	ButtonRightTrigger
	ButtonRightTrigger2
	ButtonLeftBumper
	ButtonRightBumper
	ButtonLeftPaddle
	ButtonRightPaddle
	ButtonNavLeft
	ButtonNavRight
	ButtonSteam
	ButtonLeftStick
	ButtonLeftPad
	ButtonLeftPad2
	ButtonRightPad
	ButtonRightPad2
)

var buttonNames = map[Button]string{
	ButtonSouth:         "South",
	ButtonNorth:         "North",
	ButtonEast:          "East",
	ButtonWest:          "West",
	ButtonLeftTrigger:   "LeftTrigger",
	ButtonLeftTrigger2:  "LeftTrigger2",
	ButtonRightTrigger:  "RightTrigger",
	ButtonRightTrigger2: "RightTrigger2",
	ButtonLeftBumper:    "LeftBumper",
	ButtonRightBumper:   "RightBumper",
	ButtonLeftPaddle:    "LeftPaddle",
	ButtonRightPaddle:   "RightPaddle",
	ButtonNavLeft:       "NavLeft",
	ButtonNavRight:      "NavRight",
	ButtonSteam:         "Steam",
	ButtonLeftStick:     "LeftStick",
	ButtonLeftPad:       "LeftPad",
	ButtonLeftPad2:      "LeftPad2",
	ButtonRightPad:      "RightPad",
	ButtonRightPad2:     "RightPad2",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// Axis identifies an analog input pair component.
type Axis int

const (
	AxisLeftStickX Axis = iota
	AxisLeftStickY
	AxisLeftPadX
	AxisLeftPadY
	AxisRightPadX
	AxisRightPadY
)

var axisNames = map[Axis]string{
	AxisLeftStickX: "LeftStickX",
	AxisLeftStickY: "LeftStickY",
	AxisLeftPadX:   "LeftPadX",
	AxisLeftPadY:   "LeftPadY",
	AxisRightPadX:  "RightPadX",
	AxisRightPadY:  "RightPadY",
}

func (a Axis) String() string {
	if name, ok := axisNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// EventKind discriminates Event.
type EventKind int

const (
	// ButtonChanged carries a Button and a value: 1.0 pressed, 0.0 released,
	// or an analog pressure in between for the paddle triggers.
	ButtonChanged EventKind = iota

	// AxisChanged carries an Axis and a normalized position in [-1, 1].
	AxisChanged

	// Connected is emitted once the controller is fully set up and streaming.
	Connected

	// Disconnected is emitted when the controller session ends.
	Disconnected
)

// Event is one decoded controller event.
type Event struct {
	Kind   EventKind
	Button Button
	Axis   Axis
	Value  float64
}

func (e Event) String() string {
	switch e.Kind {
	case ButtonChanged:
		return fmt.Sprintf("ButtonChanged(%s, %.2f)", e.Button, e.Value)
	case AxisChanged:
		return fmt.Sprintf("AxisChanged(%s, %.3f)", e.Axis, e.Value)
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	}
	return fmt.Sprintf("Event(%d)", int(e.Kind))
}

func buttonEvent(b Button, v float64) Event {
	return Event{Kind: ButtonChanged, Button: b, Value: v}
}

func axisEvent(a Axis, v float64) Event {
	return Event{Kind: AxisChanged, Axis: a, Value: v}
}
