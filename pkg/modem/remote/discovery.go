package remote

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS service constants.
const (
	// ServiceType is the mDNS service type for remote modem servers.
	ServiceType = "_satmodem._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the conventional modem server port.
	DefaultPort = 7450
)

// Announcer advertises a modem server over mDNS.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers the service on all interfaces. The instance name
// should identify the device, e.g. its serial number.
func Announce(instanceName string, port int, txt []string) (*Announcer, error) {
	if port == 0 {
		port = DefaultPort
	}
	server, err := zeroconf.Register(
		instanceName,
		ServiceType,
		Domain,
		port,
		txt,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register modem service: %w", err)
	}
	return &Announcer{server: server}, nil
}

// Shutdown stops the advertisement.
func (a *Announcer) Shutdown() {
	a.server.Shutdown()
}

// Service describes a discovered modem server.
type Service struct {
	InstanceName string
	Addresses    []net.IP
	Port         int
	TXT          []string
}

// Address returns a dialable host:port, preferring IPv4.
func (s *Service) Address() string {
	if len(s.Addresses) == 0 {
		return ""
	}
	addr := s.Addresses[0]
	for _, ip := range s.Addresses {
		if ip.To4() != nil {
			addr = ip
			break
		}
	}
	return net.JoinHostPort(addr.String(), fmt.Sprintf("%d", s.Port))
}

// Browse searches for modem servers until the context is cancelled.
// Each discovered server is emitted once on the returned channel.
func Browse(ctx context.Context) (<-chan *Service, error) {
	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		seen := make(map[string]struct{})
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)
				if svc == nil {
					continue
				}
				if _, dup := seen[svc.InstanceName]; dup {
					continue
				}
				seen[svc.InstanceName] = struct{}{}
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}
			case <-removed:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	return out, nil
}

// FindFirst returns the first modem server found within the timeout.
func FindFirst(ctx context.Context, timeout time.Duration) (*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	services, err := Browse(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case svc, ok := <-services:
		if !ok {
			return nil, fmt.Errorf("no modem server found")
		}
		return svc, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no modem server found within %s", timeout)
	}
}

func entryToService(entry *zeroconf.ServiceEntry) *Service {
	if entry == nil {
		return nil
	}
	addrs := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	addrs = append(addrs, entry.AddrIPv4...)
	addrs = append(addrs, entry.AddrIPv6...)
	if len(addrs) == 0 {
		return nil
	}
	return &Service{
		InstanceName: entry.Instance,
		Addresses:    addrs,
		Port:         entry.Port,
		TXT:          entry.Text,
	}
}
