package cast

import (
	"context"
	"log"
	"time"

	"github.com/vishen/go-chromecast/dns"
)

// DNSDiscoverer finds cast devices via mDNS.
type DNSDiscoverer struct {
	timeout time.Duration
	logger  *log.Logger
}

// NewDNSDiscoverer creates a Discoverer with the given per-scan timeout.
func NewDNSDiscoverer(timeout time.Duration, logger *log.Logger) *DNSDiscoverer {
	if logger == nil {
		logger = log.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DNSDiscoverer{timeout: timeout, logger: logger}
}

// Discover scans the local network until the timeout elapses and returns
// every cast device that answered.
func (d *DNSDiscoverer) Discover(ctx context.Context) ([]DeviceInfo, error) {
	scanCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	entries, err := dns.DiscoverCastDNSEntries(scanCtx, nil)
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, 0)
	seen := make(map[string]struct{})
	for entry := range entries {
		name := entry.GetName()
		if name == "" {
			continue
		}
		if _, ok := seen[entry.GetUUID()]; ok {
			continue
		}
		seen[entry.GetUUID()] = struct{}{}
		devices = append(devices, DeviceInfo{
			Name: name,
			UUID: entry.GetUUID(),
			Addr: entry.GetAddr(),
			Port: entry.GetPort(),
		})
		d.logger.Printf("mDNS discovered device: %s (%s:%d)", name, entry.GetAddr(), entry.GetPort())
	}
	return devices, nil
}
