package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// browse is replaced in tests.
var browse = zeroconf.Browse

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string

	// Timeout bounds FindBroker.
	Timeout time.Duration

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger
}

// DefaultBrowserConfig returns a BrowserConfig with default values.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Timeout: 5 * time.Second}
}

// Browser browses DNS-SD services with zeroconf.
type Browser struct {
	config BrowserConfig
	logger *slog.Logger
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Browser{config: config, logger: logger}
}

// Browse emits each newly seen instance of serviceType until ctx is
// canceled. Entries for an instance already emitted only extend its
// addresses; an instance is forgotten once all its addresses are removed,
// and emitted again if it reappears.
func (b *Browser) Browse(ctx context.Context, serviceType string) <-chan Service {
	out := make(chan Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer cancel()

		services := make(map[string]*Service)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)
				if existing, found := services[svc.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.Instance] = &svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entryToService(entry).Addresses)
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := browse(ctx, serviceType, Domain, entries, removed, b.options()...); err != nil {
			b.logger.Warn("mDNS browse failed", "service", serviceType, "error", err)
			cancel()
		}
	}()

	return out
}

// FindBroker returns the URL of the first MQTT broker found within the
// configured timeout.
func (b *Browser) FindBroker(ctx context.Context) (string, error) {
	if b.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	for svc := range b.Browse(ctx, ServiceTypeBroker) {
		if svc.Port == 0 {
			continue
		}
		url := svc.BrokerURL()
		b.logger.Info("found MQTT broker", "instance", svc.Instance, "url", url)
		return url, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ServiceTypeBroker)
}

// options returns zeroconf client options based on config.
func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func entryToService(entry *zeroconf.ServiceEntry) Service {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return Service{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      uint16(entry.Port),
		Addresses: addrs,
		Text:      StringsToTXTRecords(entry.Text),
	}
}
