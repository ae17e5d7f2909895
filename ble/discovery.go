package ble

import "fmt"

// collect runs one stream-then-complete discovery procedure: submit installs
// the handler and issues the host request; results accumulate in the order
// the host reports them until the completion event unblocks the caller.
// StatusDone completes successfully (an empty result set is success); any
// other completion status is a RemoteError.
//
// The handler appends on the host dispatch goroutine; the completion channel
// receive orders those appends before the caller reads the slice.
func collect[T any](s *Stack, op string, conn ConnHandle, submit func(DiscoveryHandler[T]) error) ([]T, error) {
	var out []T
	done := make(chan error, 1)

	h := func(rec *T, status uint16) {
		if rec != nil {
			out = append(out, *rec)
			return
		}
		if status == StatusDone {
			done <- nil
			return
		}
		done <- &RemoteError{Op: op, ConnHandle: conn, Status: status}
	}

	if err := submit(h); err != nil {
		return nil, fmt.Errorf("failed to initiate %s: %w", op, err)
	}

	if err := <-done; err != nil {
		return nil, err
	}
	return out, nil
}
