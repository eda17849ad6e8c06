package satellite

// ModemState represents the state reported by the satellite modem.
type ModemState uint8

const (
	// ModemStateIdle - modem is powered on but no session is active.
	ModemStateIdle ModemState = 0

	// ModemStateListening - modem is listening for incoming datagrams.
	ModemStateListening ModemState = 1

	// ModemStateDatagramTransferring - a datagram transfer is in progress.
	ModemStateDatagramTransferring ModemState = 2

	// ModemStateDatagramRetrying - a failed transfer is being retried.
	ModemStateDatagramRetrying ModemState = 3

	// ModemStateOff - modem is powered off.
	ModemStateOff ModemState = 4

	// ModemStateUnavailable - the modem or its vendor service is gone
	// (crash, service swap). The controller collapses to disabled.
	ModemStateUnavailable ModemState = 5
)

// String returns the modem state name.
func (s ModemState) String() string {
	switch s {
	case ModemStateIdle:
		return "IDLE"
	case ModemStateListening:
		return "LISTENING"
	case ModemStateDatagramTransferring:
		return "DATAGRAM_TRANSFERRING"
	case ModemStateDatagramRetrying:
		return "DATAGRAM_RETRYING"
	case ModemStateOff:
		return "OFF"
	case ModemStateUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// IsTerminated returns true if the state means the modem is no longer
// usable without a fresh enable request.
func (s ModemState) IsTerminated() bool {
	return s == ModemStateOff || s == ModemStateUnavailable
}
