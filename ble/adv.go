package ble

// AD structure types used here. Refer to Supplement to Bluetooth Core
// Specification, Part A.
const (
	adTypeShortName    = 0x08
	adTypeCompleteName = 0x09
)

// AdvFields is a parsed view over raw advertising data.
type AdvFields []byte

// Field returns the data of the first AD structure with the given type,
// excluding the length and type bytes, or nil if absent. A truncated
// structure terminates the walk.
func (p AdvFields) Field(typ byte) []byte {
	b := []byte(p)
	for len(b) > 0 {
		if len(b) < 2 {
			return nil
		}
		l, t := b[0], b[1]
		if l == 0 || len(b) < int(1+l) {
			return nil
		}
		if t == typ {
			return b[2 : 1+l]
		}
		b = b[1+l:]
	}
	return nil
}

// CompleteLocalName returns the complete local name field, or "" if the
// advertisement does not carry one. Shortened names are deliberately not
// accepted: the scanner matches peers on their full name.
func (p AdvFields) CompleteLocalName() string {
	return string(p.Field(adTypeCompleteName))
}
