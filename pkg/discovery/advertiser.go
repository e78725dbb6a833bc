package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// register is replaced in tests.
var register = func(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (shutdowner, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces, opts...)
}

type shutdowner interface {
	Shutdown()
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	Interface string

	// TTL overrides the record TTL when positive.
	TTL time.Duration
}

// Advertiser publishes a node endpoint over mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server shutdowner
}

// NewAdvertiser creates an advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise starts advertising info, replacing any earlier advertisement.
func (a *Advertiser) Advertise(info NodeInfo) error {
	if info.NodeID == "" {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNodeID)
	}
	if info.Port == 0 {
		return fmt.Errorf("advertise %s: port is required", info.NodeID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := register(
		info.InstanceName(),
		ServiceTypeNode,
		Domain,
		int(info.Port),
		TXTRecordsToStrings(EncodeNodeTXT(info)),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register node service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// interfaces returns the interfaces to advertise on. Nil means all.
func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
