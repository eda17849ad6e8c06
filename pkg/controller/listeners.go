package controller

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// listenerRegistry holds the provision-state, modem-state and datagram
// listener registrations, keyed by opaque uuid tokens. A listener whose
// callback returns an error is dropped silently; its transport is gone
// and unrelated callers must not see the failure.
type listenerRegistry struct {
	log zerolog.Logger

	mu        sync.Mutex
	provision map[uuid.UUID]ProvisionStateListener
	modem     map[uuid.UUID]ModemStateListener
	datagram  map[uuid.UUID]DatagramListener
}

func newListenerRegistry(log zerolog.Logger) *listenerRegistry {
	return &listenerRegistry{
		log:       log.With().Str("component", "listeners").Logger(),
		provision: make(map[uuid.UUID]ProvisionStateListener),
		modem:     make(map[uuid.UUID]ModemStateListener),
		datagram:  make(map[uuid.UUID]DatagramListener),
	}
}

// RegisterProvisionStateListener adds a provisioning state listener and
// returns its registration token.
func (c *Controller) RegisterProvisionStateListener(l ProvisionStateListener) uuid.UUID {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	id := uuid.New()
	c.listeners.provision[id] = l
	return id
}

// UnregisterProvisionStateListener removes a provisioning state
// listener. Unknown tokens are ignored.
func (c *Controller) UnregisterProvisionStateListener(id uuid.UUID) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	delete(c.listeners.provision, id)
}

// RegisterModemStateListener adds a modem state listener and returns
// its registration token.
func (c *Controller) RegisterModemStateListener(l ModemStateListener) uuid.UUID {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	id := uuid.New()
	c.listeners.modem[id] = l
	return id
}

// UnregisterModemStateListener removes a modem state listener.
func (c *Controller) UnregisterModemStateListener(id uuid.UUID) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	delete(c.listeners.modem, id)
}

// RegisterDatagramListener adds an inbound datagram listener and
// returns its registration token.
func (c *Controller) RegisterDatagramListener(l DatagramListener) uuid.UUID {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	id := uuid.New()
	c.listeners.datagram[id] = l
	return id
}

// UnregisterDatagramListener removes a datagram listener.
func (c *Controller) UnregisterDatagramListener(id uuid.UUID) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	delete(c.listeners.datagram, id)
}

func (r *listenerRegistry) notifyProvisionState(provisioned bool) {
	r.mu.Lock()
	snapshot := make(map[uuid.UUID]ProvisionStateListener, len(r.provision))
	for id, l := range r.provision {
		snapshot[id] = l
	}
	r.mu.Unlock()

	for id, l := range snapshot {
		if err := l.OnProvisionStateChanged(provisioned); err != nil {
			r.drop("provision", id, err)
			r.mu.Lock()
			delete(r.provision, id)
			r.mu.Unlock()
		}
	}
}

func (r *listenerRegistry) notifyModemState(state satellite.ModemState) {
	r.mu.Lock()
	snapshot := make(map[uuid.UUID]ModemStateListener, len(r.modem))
	for id, l := range r.modem {
		snapshot[id] = l
	}
	r.mu.Unlock()

	for id, l := range snapshot {
		if err := l.OnModemStateChanged(state); err != nil {
			r.drop("modem", id, err)
			r.mu.Lock()
			delete(r.modem, id)
			r.mu.Unlock()
		}
	}
}

func (r *listenerRegistry) notifyDatagram(datagram satellite.Datagram, pending int) {
	r.mu.Lock()
	snapshot := make(map[uuid.UUID]DatagramListener, len(r.datagram))
	for id, l := range r.datagram {
		snapshot[id] = l
	}
	r.mu.Unlock()

	for id, l := range snapshot {
		if err := l.OnDatagramReceived(datagram, pending); err != nil {
			r.drop("datagram", id, err)
			r.mu.Lock()
			delete(r.datagram, id)
			r.mu.Unlock()
		}
	}
}

func (r *listenerRegistry) drop(kind string, id uuid.UUID, err error) {
	r.log.Debug().Str("kind", kind).Str("id", id.String()).Err(err).
		Msg("dropping unreachable listener")
}
