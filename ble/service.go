package ble

import "fmt"

// Service is a discovered GATT service, scoped to one connection. Discovery
// results are call-scoped values: they are not cached and do not outlive the
// connection they were discovered on.
type Service struct {
	stack *Stack
	conn  ConnHandle

	StartHandle uint16
	EndHandle   uint16

	uuid UUID
}

// UUID returns the service UUID.
func (s *Service) UUID() UUID { return s.uuid }

func (s *Service) String() string {
	return fmt.Sprintf("Service{conn_handle=%d start_handle=%d end_handle=%d uuid=%s}",
		s.conn, s.StartHandle, s.EndHandle, s.uuid)
}

// Characteristics discovers the characteristics within the service's handle
// range, in discovery order.
//
// The host reports only a definition and value handle per characteristic, so
// a second pass derives each end handle: the next characteristic's
// definition handle minus one, and the service end handle for the last one.
func (s *Service) Characteristics() ([]Characteristic, error) {
	s.stack.logger.WithField("service", s.String()).Info("Discovering characteristics")

	recs, err := collect(s.stack, "characteristic discovery", s.conn,
		func(h DiscoveryHandler[CharacteristicRecord]) error {
			return s.stack.host.DiscoverCharacteristics(s.conn, s.StartHandle, s.EndHandle, h)
		})
	if err != nil {
		return nil, err
	}

	chrs := make([]Characteristic, 0, len(recs))
	for _, rec := range recs {
		chrs = append(chrs, Characteristic{
			stack:      s.stack,
			conn:       s.conn,
			DefHandle:  rec.DefHandle,
			ValHandle:  rec.ValHandle,
			properties: rec.Properties,
			uuid:       rec.UUID,
		})
	}

	for i := range chrs {
		if i+1 < len(chrs) {
			chrs[i].EndHandle = chrs[i+1].DefHandle - 1
		} else {
			chrs[i].EndHandle = s.EndHandle
		}
		s.stack.logger.WithField("characteristic", chrs[i].String()).Info("Found characteristic")
	}

	return chrs, nil
}
