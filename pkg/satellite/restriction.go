package satellite

// RestrictionReason enumerates the independent causes that can block
// satellite attach for a subscription. Attach is allowed only when the set
// of active reasons is empty.
type RestrictionReason uint8

const (
	// RestrictionUser - the user disabled satellite attach in settings.
	// User-initiated changes are persisted before evaluation.
	RestrictionUser RestrictionReason = 0

	// RestrictionGeolocation - attach is blocked for the current location.
	RestrictionGeolocation RestrictionReason = 1

	// RestrictionEntitlement - the carrier entitlement server blocked
	// attach for this subscription.
	RestrictionEntitlement RestrictionReason = 2
)

// String returns the restriction reason name.
func (r RestrictionReason) String() string {
	switch r {
	case RestrictionUser:
		return "USER"
	case RestrictionGeolocation:
		return "GEOLOCATION"
	case RestrictionEntitlement:
		return "ENTITLEMENT"
	default:
		return "UNKNOWN"
	}
}
