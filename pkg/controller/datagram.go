package controller

import (
	"context"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// SendDatagram transmits a datagram over the satellite link. Requires
// an active session; SOS datagrams bring up the pointing UI in full
// screen when the capabilities require pointing.
func (c *Controller) SendDatagram(datagramType satellite.DatagramType, datagram satellite.Datagram, done Callback) {
	snap := c.cache.snapshot()
	if snap.Enabled == nil || !*snap.Enabled {
		done(satellite.ResultInvalidState)
		return
	}
	if caps := snap.Capabilities; caps != nil && caps.MaxBytesPerDatagram > 0 &&
		len(datagram.Payload) > caps.MaxBytesPerDatagram {
		done(satellite.ResultInvalidArguments)
		return
	}
	c.enqueue(evSendDatagram{datagramType: datagramType, datagram: datagram, done: done})
}

// SendDatagramSync is the blocking variant of SendDatagram. It panics
// when called from the worker goroutine.
func (c *Controller) SendDatagramSync(ctx context.Context, datagramType satellite.DatagramType, datagram satellite.Datagram) (satellite.Result, error) {
	return c.await(ctx, func(done Callback) {
		c.SendDatagram(datagramType, datagram, done)
	})
}

// PollPendingDatagrams asks the modem to deliver queued inbound
// datagrams to the registered datagram listeners.
func (c *Controller) PollPendingDatagrams(done Callback) {
	c.enqueue(evPollRequest{done: done})
}

// StartTransmissionUpdates subscribes to pointing transmission updates.
// The latest update is readable through Snapshot.
func (c *Controller) StartTransmissionUpdates(done Callback) {
	c.endpoint.StartTransmissionUpdates(done)
}

// StopTransmissionUpdates ends the pointing update subscription.
func (c *Controller) StopTransmissionUpdates(done Callback) {
	c.endpoint.StopTransmissionUpdates(done)
}

func (c *Controller) handleSendDatagram(ev evSendDatagram) {
	if ev.datagramType == satellite.DatagramSOS && c.cache.pointingRequired() {
		c.pointing.StartUI(true)
	}

	c.log.Info().Stringer("type", ev.datagramType).Int("bytes", len(ev.datagram.Payload)).
		Msg("dispatching datagram")
	c.endpoint.SendDatagram(ev.datagramType, ev.datagram, func(result satellite.Result) {
		c.enqueue(evSendDatagramAck{result: result, done: ev.done})
	})
}

func (c *Controller) handleSendDatagramAck(ev evSendDatagramAck) {
	c.metrics.DatagramOutcome(ev.result)
	if ev.done != nil {
		ev.done(ev.result)
	}
}

func (c *Controller) handlePollRequest(ev evPollRequest) {
	c.endpoint.PollPendingDatagrams(func(result satellite.Result) {
		c.enqueue(evPollAck{result: result, done: ev.done})
	})
}

func (c *Controller) handlePollAck(ev evPollAck) {
	if ev.done != nil {
		ev.done(ev.result)
		return
	}
	// Internally triggered poll: outcome is log-only.
	if ev.result.IsError() {
		c.log.Warn().Stringer("result", ev.result).Msg("pending datagram poll failed")
	}
}

// handlePendingDatagrams reacts to the modem's queued-datagram
// indication with an internal poll.
func (c *Controller) handlePendingDatagrams(count int) {
	c.log.Debug().Int("pending", count).Msg("modem reports pending datagrams")
	c.handlePollRequest(evPollRequest{})
}
