package ble

import "fmt"

// write submits a write-with-response and blocks on a single-use status
// channel for the peer's answer. A payload larger than the negotiated MTU
// fails before any request is submitted; a payload of exactly the MTU is
// accepted.
func (s *Stack) write(conn ConnHandle, attrHandle uint16, data []byte) error {
	mtu := s.host.MTU(conn)
	if len(data) > int(mtu) {
		return &MTUExceededError{Len: len(data), MTU: mtu}
	}

	status := make(chan uint16, 1)
	err := s.host.Write(conn, attrHandle, data, func(st uint16) {
		status <- st
	})
	if err != nil {
		return fmt.Errorf("failed to submit write to attr_handle=%d: %w", attrHandle, err)
	}

	if st := <-status; st != 0 {
		return &RemoteError{Op: "write", ConnHandle: conn, AttrHandle: attrHandle, Status: st}
	}
	return nil
}

// writeNoResponse submits a fire-and-forget write. The same MTU check
// applies; success means the request was accepted, not that the peer
// received it.
func (s *Stack) writeNoResponse(conn ConnHandle, attrHandle uint16, data []byte) error {
	mtu := s.host.MTU(conn)
	if len(data) > int(mtu) {
		return &MTUExceededError{Len: len(data), MTU: mtu}
	}

	err := s.host.WriteNoResponse(conn, attrHandle, data)
	if err != nil {
		return fmt.Errorf("failed to submit write without response to attr_handle=%d: %w", attrHandle, err)
	}
	return nil
}
