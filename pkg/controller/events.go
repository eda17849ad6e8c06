package controller

import (
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// event is the typed union consumed by the worker goroutine. Every
// state-changing input is one of these; the worker dispatches on the
// concrete type.
type event interface{ isEvent() }

// evEndpointReset re-initializes the controller against the endpoint:
// cached facts are cleared together, then the bring-up query chain runs.
type evEndpointReset struct{}

// evEnableRequest is an arbitrated enable/disable request.
type evEnableRequest struct {
	enable bool
	demo   bool
	done   Callback
}

// evEnableAck is the modem's acknowledgment of an enable or disable
// command dispatched by the worker.
type evEnableAck struct {
	enable bool
	result satellite.Result
}

// evRadioAllOff fires when every dependent terrestrial radio has newly
// turned off.
type evRadioAllOff struct{}

// evModemState is an externally observed modem state change.
type evModemState struct {
	state satellite.ModemState
}

// evProvisionState is an externally observed provisioning state change.
type evProvisionState struct {
	provisioned bool
}

// evSupportedAck completes a supported query.
type evSupportedAck struct {
	result    satellite.Result
	supported bool
	done      func(satellite.Result, bool)
}

// evEnabledAck completes an enabled query.
type evEnabledAck struct {
	result  satellite.Result
	enabled bool
	done    func(satellite.Result, bool)
}

// evProvisionedAck completes a provisioned query.
type evProvisionedAck struct {
	result      satellite.Result
	provisioned bool
	done        func(satellite.Result, bool)
}

// evCapabilitiesAck completes a capabilities query.
type evCapabilitiesAck struct {
	result satellite.Result
	caps   *satellite.Capabilities
	done   func(satellite.Result, *satellite.Capabilities)
}

// evProvisionRequest asks to provision a subscription.
type evProvisionRequest struct {
	subID int64
	token string
	data  []byte
	done  Callback
}

// evProvisionAck completes a provision command.
type evProvisionAck struct {
	subID  int64
	result satellite.Result
}

// evDeprovisionRequest asks to deprovision a subscription. A nil done
// marks a cancellation-handle deprovision.
type evDeprovisionRequest struct {
	subID int64
	token string
	done  Callback
}

// evDeprovisionAck completes a deprovision command.
type evDeprovisionAck struct {
	subID  int64
	result satellite.Result
	done   Callback
}

// evRestrictionChange adds or removes a carrier attach restriction.
type evRestrictionChange struct {
	subID  int64
	reason satellite.RestrictionReason
	add    bool
	done   Callback
}

// evCarrierSupport records whether the carrier supports satellite attach
// for a subscription and re-evaluates.
type evCarrierSupport struct {
	subID     int64
	supported bool
}

// evCarrierAck completes a scoped carrier attach command.
type evCarrierAck struct {
	subID   int64
	desired bool
	result  satellite.Result
	done    Callback
}

// evSendDatagram asks to transmit a datagram.
type evSendDatagram struct {
	datagramType satellite.DatagramType
	datagram     satellite.Datagram
	done         Callback
}

// evSendDatagramAck completes a datagram transmission.
type evSendDatagramAck struct {
	result satellite.Result
	done   Callback
}

// evPollRequest asks the modem to deliver pending inbound datagrams. A
// nil done marks an internally triggered poll.
type evPollRequest struct {
	done Callback
}

// evPollAck completes a poll.
type evPollAck struct {
	result satellite.Result
	done   Callback
}

// evPendingDatagrams is the modem's indication that datagrams are queued.
type evPendingDatagrams struct {
	count int
}

// evDatagramReceived is an inbound datagram delivery.
type evDatagramReceived struct {
	datagram satellite.Datagram
	pending  int
}

func (evEndpointReset) isEvent()      {}
func (evEnableRequest) isEvent()      {}
func (evEnableAck) isEvent()          {}
func (evRadioAllOff) isEvent()        {}
func (evModemState) isEvent()         {}
func (evProvisionState) isEvent()     {}
func (evSupportedAck) isEvent()       {}
func (evEnabledAck) isEvent()         {}
func (evProvisionedAck) isEvent()     {}
func (evCapabilitiesAck) isEvent()    {}
func (evProvisionRequest) isEvent()   {}
func (evProvisionAck) isEvent()       {}
func (evDeprovisionRequest) isEvent() {}
func (evDeprovisionAck) isEvent()     {}
func (evRestrictionChange) isEvent()  {}
func (evCarrierSupport) isEvent()     {}
func (evCarrierAck) isEvent()         {}
func (evSendDatagram) isEvent()       {}
func (evSendDatagramAck) isEvent()    {}
func (evPollRequest) isEvent()        {}
func (evPollAck) isEvent()            {}
func (evPendingDatagrams) isEvent()   {}
func (evDatagramReceived) isEvent()   {}
