package ble

// ConnEventKind discriminates events on a device's persistent stream.
type ConnEventKind int

const (
	// ConnConnected resolves a connect attempt: the link is encrypted and
	// ready for attribute traffic.
	ConnConnected ConnEventKind = iota
	// ConnError reports a failed connect attempt or a failed setup step.
	ConnError
	// ConnDisconnected reports link termination.
	ConnDisconnected
	// ConnNotification carries an unacknowledged characteristic value push.
	ConnNotification
	// ConnIndication carries an acknowledged characteristic value push.
	ConnIndication
)

func (k ConnEventKind) String() string {
	switch k {
	case ConnConnected:
		return "connected"
	case ConnError:
		return "error"
	case ConnDisconnected:
		return "disconnected"
	case ConnNotification:
		return "notification"
	case ConnIndication:
		return "indication"
	default:
		return "unknown"
	}
}

// ConnEvent is one event on a device's persistent stream. Exactly one of
// {ConnConnected, ConnError, ConnDisconnected} resolves a blocked connect
// call; everything delivered afterwards routes only through the stream.
type ConnEvent struct {
	Kind   ConnEventKind
	Handle ConnHandle // Connected, Disconnected
	Code   int        // Error
	Data   []byte     // Notification, Indication
}
