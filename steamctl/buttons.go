package steamctl

// Button bitmask positions within the 3-byte button subfield, packed
// big-endian into a uint32.
const (
	bitA             uint32 = 0x800000
	bitX             uint32 = 0x400000
	bitB             uint32 = 0x200000
	bitY             uint32 = 0x100000
	bitLeftBumper    uint32 = 0x080000
	bitRightBumper   uint32 = 0x040000
	bitLeftTrigger   uint32 = 0x020000
	bitRightTrigger  uint32 = 0x010000
	bitLeftPaddle    uint32 = 0x008000
	bitRightPaddle   uint32 = 0x000001
	bitNavRight      uint32 = 0x004000
	bitNavLeft       uint32 = 0x001000
	bitSteam         uint32 = 0x002000
	bitJoystick      uint32 = 0x000040
	bitRightPadTouch uint32 = 0x000010
	bitRightPadClick uint32 = 0x000004
	bitLeftPadTouch  uint32 = 0x000008
	bitLeftPadClick  uint32 = 0x000002
)

// Frame flag bits. The low nibble is a frame tag, not flags; it must equal
// flagReport for the frame to carry input subfields.
const (
	flagReport   uint16 = 0x0004
	flagButtons  uint16 = 0x0010
	flagPaddles  uint16 = 0x0020
	flagJoystick uint16 = 0x0080
	flagLeftPad  uint16 = 0x0100
	flagRightPad uint16 = 0x0200
)

// buttonBits maps bitmask positions to logical buttons in emission order.
// The face buttons report by their canonical position (A is south, B east,
// X west, Y north); pad touch maps to the pad button and pad click to its
// secondary.
var buttonBits = []struct {
	mask   uint32
	button Button
}{
	{bitA, ButtonSouth},
	{bitB, ButtonEast},
	{bitX, ButtonWest},
	{bitY, ButtonNorth},
	{bitLeftBumper, ButtonLeftBumper},
	{bitRightBumper, ButtonRightBumper},
	{bitLeftTrigger, ButtonLeftTrigger},
	{bitRightTrigger, ButtonRightTrigger},
	{bitLeftPaddle, ButtonLeftPaddle},
	{bitRightPaddle, ButtonRightPaddle},
	{bitNavLeft, ButtonNavLeft},
	{bitNavRight, ButtonNavRight},
	{bitSteam, ButtonSteam},
	{bitJoystick, ButtonLeftStick},
	{bitLeftPadClick, ButtonLeftPad2},
	{bitLeftPadTouch, ButtonLeftPad},
	{bitRightPadClick, ButtonRightPad2},
	{bitRightPadTouch, ButtonRightPad},
}
