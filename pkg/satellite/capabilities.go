package satellite

// RadioTechnology identifies a non-terrestrial radio technology supported
// by the modem.
type RadioTechnology uint8

const (
	// TechnologyProprietary - vendor-proprietary satellite link.
	TechnologyProprietary RadioTechnology = 0

	// TechnologyNBIoTNTN - NB-IoT over NTN. Requires network attach.
	TechnologyNBIoTNTN RadioTechnology = 1

	// TechnologyNRNTN - 5G NR over NTN.
	TechnologyNRNTN RadioTechnology = 2

	// TechnologyEMTCNTN - eMTC over NTN.
	TechnologyEMTCNTN RadioTechnology = 3
)

// String returns the technology name.
func (t RadioTechnology) String() string {
	switch t {
	case TechnologyProprietary:
		return "PROPRIETARY"
	case TechnologyNBIoTNTN:
		return "NB_IOT_NTN"
	case TechnologyNRNTN:
		return "NR_NTN"
	case TechnologyEMTCNTN:
		return "EMTC_NTN"
	default:
		return "UNKNOWN"
	}
}

// Capabilities describes what the satellite modem can do. Reported once per
// endpoint connection and cached by the controller.
type Capabilities struct {
	// Technologies lists the supported non-terrestrial radio technologies.
	Technologies []RadioTechnology `json:"technologies"`

	// PointingRequired is true when the user must point the device at the
	// satellite before transfers can proceed.
	PointingRequired bool `json:"pointing_required"`

	// MaxBytesPerDatagram is the largest datagram payload the modem
	// accepts.
	MaxBytesPerDatagram int `json:"max_bytes_per_datagram"`
}

// SupportsTechnology reports whether the capability set includes tech.
func (c *Capabilities) SupportsTechnology(tech RadioTechnology) bool {
	for _, t := range c.Technologies {
		if t == tech {
			return true
		}
	}
	return false
}

// AttachRequired reports whether the modem needs a network attach before
// sending datagrams (true for NB-IoT NTN technology).
func (c *Capabilities) AttachRequired() bool {
	return c.SupportsTechnology(TechnologyNBIoTNTN)
}
