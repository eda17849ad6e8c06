// Package bluez implements a radios.UsageSource backed by the BlueZ
// system D-Bus service. It reports the Bluetooth adapter's Powered
// property as the on/off state of radios.RadioBluetooth.
package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/radios"
)

const (
	busName      = "org.bluez"
	adapterPath  = "/org/bluez/hci0"
	adapterIface = "org.bluez.Adapter1"
	propsIface   = "org.freedesktop.DBus.Properties"
)

// Source watches the BlueZ adapter over the system bus.
type Source struct {
	conn *dbus.Conn
	log  zerolog.Logger
}

// New connects to the system bus and verifies BlueZ is present.
func New(log zerolog.Logger) (*Source, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("org.bluez not found on system bus")
	}
	return &Source{conn: conn, log: log}, nil
}

// Close releases the bus connection.
func (s *Source) Close() error {
	return s.conn.Close()
}

// Powered returns the adapter's current Powered state.
func (s *Source) Powered() (bool, error) {
	obj := s.conn.Object(busName, adapterPath)
	var v dbus.Variant
	if err := obj.Call(propsIface+".Get", 0, adapterIface, "Powered").Store(&v); err != nil {
		return false, err
	}
	on, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("Powered property is not bool")
	}
	return on, nil
}

// Watch reports the initial Powered state, then every transition, until
// ctx is done.
func (s *Source) Watch(ctx context.Context, update func(radio radios.Radio, on bool)) error {
	on, err := s.Powered()
	if err != nil {
		return fmt.Errorf("read initial adapter state: %w", err)
	}
	update(radios.RadioBluetooth, on)

	call := s.conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch", 0,
		"type='signal',interface='"+propsIface+"',member='PropertiesChanged',path='"+adapterPath+"'",
	)
	if call.Err != nil {
		return fmt.Errorf("add match rule: %w", call.Err)
	}

	signals := make(chan *dbus.Signal, 16)
	s.conn.Signal(signals)
	defer s.conn.RemoveSignal(signals)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("bus connection closed")
			}
			powered, ok := poweredFromSignal(sig)
			if !ok {
				continue
			}
			s.log.Debug().Bool("powered", powered).Msg("bluetooth adapter state changed")
			update(radios.RadioBluetooth, powered)
		}
	}
}

// poweredFromSignal extracts the Powered property from a
// PropertiesChanged signal, if present.
func poweredFromSignal(sig *dbus.Signal) (bool, bool) {
	if sig.Name != propsIface+".PropertiesChanged" || len(sig.Body) < 2 {
		return false, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != adapterIface {
		return false, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}
	v, ok := changed["Powered"]
	if !ok {
		return false, false
	}
	on, ok := v.Value().(bool)
	return on, ok
}

var _ radios.UsageSource = (*Source)(nil)
