package ble

import "fmt"

// Descriptor is a discovered GATT descriptor, scoped to one connection.
type Descriptor struct {
	stack *Stack
	conn  ConnHandle

	// ChrValHandle is the value handle of the parent characteristic.
	ChrValHandle uint16
	Handle       uint16

	uuid UUID
}

// UUID returns the descriptor UUID.
func (d *Descriptor) UUID() UUID { return d.uuid }

func (d *Descriptor) String() string {
	return fmt.Sprintf("Descriptor{conn_handle=%d chr_val_handle=%d handle=%d uuid=%s}",
		d.conn, d.ChrValHandle, d.Handle, d.uuid)
}

// Write submits a write-with-response to the descriptor and blocks for the
// peer status.
func (d *Descriptor) Write(data []byte) error {
	return d.stack.write(d.conn, d.Handle, data)
}

// WriteNoResponse submits a fire-and-forget write to the descriptor.
func (d *Descriptor) WriteNoResponse(data []byte) error {
	return d.stack.writeNoResponse(d.conn, d.Handle, data)
}
