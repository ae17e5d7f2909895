package ble

import "fmt"

// cccUUID identifies the Client Characteristic Configuration descriptor.
var cccUUID = NewUUID16(0x2902)

// CCC values: the 2-byte configuration written to the 0x2902 descriptor.
const (
	cccOff      uint16 = 0
	cccNotify   uint16 = 1
	cccIndicate uint16 = 2
)

// Characteristic is a discovered GATT characteristic, scoped to one
// connection. EndHandle is derived during discovery from the neighbouring
// characteristic; see Service.Characteristics.
type Characteristic struct {
	stack *Stack
	conn  ConnHandle

	DefHandle uint16
	ValHandle uint16
	EndHandle uint16

	properties Properties
	uuid       UUID
}

// UUID returns the characteristic UUID.
func (c *Characteristic) UUID() UUID { return c.uuid }

// Properties returns the raw property bitmask.
func (c *Characteristic) Properties() Properties { return c.properties }

func (c *Characteristic) CanBroadcast() bool       { return c.properties&PropBroadcast != 0 }
func (c *Characteristic) CanRead() bool            { return c.properties&PropRead != 0 }
func (c *Characteristic) CanWrite() bool           { return c.properties&PropWrite != 0 }
func (c *Characteristic) CanWriteNoResponse() bool { return c.properties&PropWriteNoResponse != 0 }
func (c *Characteristic) CanNotify() bool          { return c.properties&PropNotify != 0 }
func (c *Characteristic) CanIndicate() bool        { return c.properties&PropIndicate != 0 }

func (c *Characteristic) String() string {
	return fmt.Sprintf("Characteristic{conn_handle=%d def_handle=%d val_handle=%d end_handle=%d props=0x%02x uuid=%s}",
		c.conn, c.DefHandle, c.ValHandle, c.EndHandle, uint8(c.properties), c.uuid)
}

// Write submits a write-with-response to the characteristic value and blocks
// for the peer status.
func (c *Characteristic) Write(data []byte) error {
	if !c.CanWrite() {
		return fmt.Errorf("characteristic %s does not support writes", c.uuid)
	}
	return c.stack.write(c.conn, c.ValHandle, data)
}

// WriteNoResponse submits a fire-and-forget write to the characteristic
// value and returns once the request is accepted.
func (c *Characteristic) WriteNoResponse(data []byte) error {
	if !c.CanWriteNoResponse() {
		return fmt.Errorf("characteristic %s does not support writes without response", c.uuid)
	}
	return c.stack.writeNoResponse(c.conn, c.ValHandle, data)
}

// Descriptors discovers the descriptors between the characteristic value
// handle and its end handle, in discovery order.
func (c *Characteristic) Descriptors() ([]Descriptor, error) {
	c.stack.logger.WithField("characteristic", c.String()).Info("Discovering descriptors")

	recs, err := collect(c.stack, "descriptor discovery", c.conn,
		func(h DiscoveryHandler[DescriptorRecord]) error {
			return c.stack.host.DiscoverDescriptors(c.conn, c.ValHandle, c.EndHandle, h)
		})
	if err != nil {
		return nil, err
	}

	dscs := make([]Descriptor, 0, len(recs))
	for _, rec := range recs {
		dsc := Descriptor{
			stack:        c.stack,
			conn:         c.conn,
			ChrValHandle: c.ValHandle,
			Handle:       rec.Handle,
			uuid:         rec.UUID,
		}
		c.stack.logger.WithField("descriptor", dsc.String()).Info("Found descriptor")
		dscs = append(dscs, dsc)
	}
	return dscs, nil
}

// DescriptorByUUID discovers descriptors and returns the first one matching
// uuid, or nil if absent.
func (c *Characteristic) DescriptorByUUID(uuid UUID) (*Descriptor, error) {
	dscs, err := c.Descriptors()
	if err != nil {
		return nil, err
	}
	for i := range dscs {
		if dscs[i].UUID().Equal(uuid) {
			return &dscs[i], nil
		}
	}
	return nil, nil
}

// SetNotify enables or disables notifications by writing the standard
// client configuration descriptor. A notify-capable characteristic without
// that descriptor is a peer configuration error.
func (c *Characteristic) SetNotify(enable bool) error {
	if !c.CanNotify() {
		return fmt.Errorf("characteristic %s does not support notifications", c.uuid)
	}

	dsc, err := c.DescriptorByUUID(cccUUID)
	if err != nil {
		return err
	}
	if dsc == nil {
		return fmt.Errorf("characteristic %s supports notifications but has no client configuration descriptor", c.uuid)
	}

	value := cccOff
	if enable {
		value = cccNotify
	}
	return dsc.Write([]byte{byte(value), byte(value >> 8)})
}
