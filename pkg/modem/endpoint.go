package modem

import (
	"time"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// Listener receives unsolicited events from the modem endpoint.
// Implementations must be quick; endpoints deliver events sequentially.
type Listener interface {
	// OnProvisionStateChanged reports a provisioning state transition.
	OnProvisionStateChanged(provisioned bool)

	// OnModemStateChanged reports a modem state transition.
	OnModemStateChanged(state satellite.ModemState)

	// OnPendingDatagrams reports that the modem has queued incoming
	// datagrams waiting to be polled.
	OnPendingDatagrams(count int)

	// OnDatagramReceived delivers one polled datagram and the number of
	// datagrams still pending after it.
	OnDatagramReceived(datagram satellite.Datagram, pending int)

	// OnTransmissionUpdate delivers a pointing update while transmission
	// updates are started.
	OnTransmissionUpdate(info satellite.PointingInfo)
}

// Endpoint is the capability handle for one satellite modem vendor
// service. All async operations deliver exactly one completion.
type Endpoint interface {
	// RequestIsSupported queries whether the modem supports satellite
	// service at all.
	RequestIsSupported(done func(result satellite.Result, supported bool))

	// RequestEnable turns the satellite modem on or off. demo selects
	// demo mode and is only meaningful when enabling.
	RequestEnable(enable, demo bool, done func(result satellite.Result))

	// RequestIsEnabled queries the modem's current power state.
	RequestIsEnabled(done func(result satellite.Result, enabled bool))

	// RequestCapabilities queries the modem capability set.
	RequestCapabilities(done func(result satellite.Result, caps *satellite.Capabilities))

	// RequestIsProvisioned queries whether the device is provisioned
	// with the satellite provider.
	RequestIsProvisioned(done func(result satellite.Result, provisioned bool))

	// Provision registers the device with the satellite provider under
	// an opaque token.
	Provision(token string, data []byte, done func(result satellite.Result))

	// Deprovision removes the registration for token.
	Deprovision(token string, done func(result satellite.Result))

	// RequestCommunicationAllowed queries whether satellite communication
	// is allowed for the current location. Never cached.
	RequestCommunicationAllowed(done func(result satellite.Result, allowed bool))

	// RequestTimeForNextVisibility queries the time until the satellite
	// is next visible.
	RequestTimeForNextVisibility(done func(result satellite.Result, visible time.Duration))

	// SetEnabledForCarrier enables or disables satellite attach for one
	// subscription's carrier at the modem.
	SetEnabledForCarrier(subID int64, enabled bool, done func(result satellite.Result))

	// StartTransmissionUpdates asks the modem to start reporting
	// pointing updates.
	StartTransmissionUpdates(done func(result satellite.Result))

	// StopTransmissionUpdates stops pointing update reports.
	StopTransmissionUpdates(done func(result satellite.Result))

	// SendDatagram transmits one datagram over the satellite link.
	SendDatagram(datagramType satellite.DatagramType, datagram satellite.Datagram, done func(result satellite.Result))

	// PollPendingDatagrams asks the modem to deliver queued incoming
	// datagrams via OnDatagramReceived.
	PollPendingDatagrams(done func(result satellite.Result))

	// Subscribe registers a listener for unsolicited events. The
	// returned function removes the registration; calling it twice is
	// harmless.
	Subscribe(listener Listener) (unsubscribe func())
}
