package satellite

// DatagramType indicates what kind of payload a datagram carries.
type DatagramType uint8

const (
	// DatagramSOS - emergency SOS message.
	DatagramSOS DatagramType = 0

	// DatagramLocationSharing - location sharing message.
	DatagramLocationSharing DatagramType = 1
)

// String returns the datagram type name.
func (t DatagramType) String() string {
	switch t {
	case DatagramSOS:
		return "SOS"
	case DatagramLocationSharing:
		return "LOCATION_SHARING"
	default:
		return "UNKNOWN"
	}
}

// Datagram is an opaque payload exchanged over the satellite link. The
// gateway encodes and encrypts it before it reaches the controller; the
// controller passes it to the modem unchanged.
type Datagram struct {
	Payload []byte `json:"payload"`
}

// PointingInfo is a transmission update reported by the modem while the
// pointing UI is active.
type PointingInfo struct {
	// AzimuthDegrees is the satellite azimuth relative to true north.
	AzimuthDegrees float64 `json:"azimuth_degrees"`

	// ElevationDegrees is the satellite elevation above the horizon.
	ElevationDegrees float64 `json:"elevation_degrees"`

	// SignalStrength is the normalized link quality in [0, 1].
	SignalStrength float64 `json:"signal_strength"`
}
