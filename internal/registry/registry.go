package registry

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmcneish/castbridge/internal/apperrors"
	"github.com/jmcneish/castbridge/internal/cast"
)

// Registry holds every known cast device by name and keeps the set fresh
// with periodic rescans.
type Registry struct {
	discoverer cast.Discoverer
	factory    cast.Factory
	backends   BackendFactory
	appIDs     map[string]string
	rescan     time.Duration
	logger     *log.Logger

	mu      sync.RWMutex
	devices map[string]*Device

	cron *cron.Cron
}

// Options configures a Registry.
type Options struct {
	Discoverer     cast.Discoverer
	ClientFactory  cast.Factory
	BackendFactory BackendFactory

	// AppIDs maps receiver app ids to backend names for inference.
	AppIDs map[string]string

	// RescanInterval is how often the network is rescanned for new
	// devices.
	RescanInterval time.Duration

	Logger *log.Logger
}

// New creates an empty registry. Call Start to run the initial scan and
// schedule rescans.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	rescan := opts.RescanInterval
	if rescan <= 0 {
		rescan = 2 * time.Hour
	}
	return &Registry{
		discoverer: opts.Discoverer,
		factory:    opts.ClientFactory,
		backends:   opts.BackendFactory,
		appIDs:     opts.AppIDs,
		rescan:     rescan,
		logger:     logger,
		devices:    make(map[string]*Device),
		cron:       cron.New(),
	}
}

// Start runs the initial discovery scan and schedules periodic rescans.
// Starting with zero reachable devices is a hard error; a bridge that
// controls nothing should fail loudly at boot instead of at first command.
func (r *Registry) Start(ctx context.Context) error {
	if err := r.Scan(ctx); err != nil {
		return err
	}
	if r.Count() == 0 {
		return apperrors.NewInternalError("No cast devices found on the network")
	}

	spec := fmt.Sprintf("@every %dm", int(r.rescan.Minutes()))
	if _, err := r.cron.AddFunc(spec, func() {
		scanCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.Scan(scanCtx); err != nil {
			r.logger.Printf("Rescan failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule rescan: %w", err)
	}
	r.cron.Start()
	r.logger.Printf("Device rescan scheduled: %s", spec)
	return nil
}

// Scan discovers devices and registers any not already known. Known
// devices are left untouched so their connections and backend state
// survive rescans.
func (r *Registry) Scan(ctx context.Context) error {
	infos, err := r.discoverer.Discover(ctx)
	if err != nil {
		return err
	}

	for _, info := range infos {
		r.mu.RLock()
		_, known := r.devices[info.Name]
		r.mu.RUnlock()
		if known {
			continue
		}

		client := r.factory(info)
		if err := client.Connect(ctx); err != nil {
			r.logger.Printf("Failed to connect to %s: %v", info.Name, err)
			client.Close()
			continue
		}

		device := newDevice(info, client, r.backends, r.appIDs, r.logger)
		r.mu.Lock()
		// An overlapping scan may have registered the device while we
		// were connecting. The first registration wins; ours is torn
		// down so its connection does not leak.
		if _, known := r.devices[info.Name]; known {
			r.mu.Unlock()
			client.Close()
			continue
		}
		r.devices[info.Name] = device
		r.mu.Unlock()
		r.logger.Printf("Registered device: %s (%s)", info.Name, info.UUID)
	}
	return nil
}

// Stop halts rescans and closes every device connection.
func (r *Registry) Stop() {
	r.cron.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, device := range r.devices {
		if err := device.Close(); err != nil {
			r.logger.Printf("Failed to close %s: %v", name, err)
		}
	}
	r.devices = make(map[string]*Device)
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Names returns the registered device names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match resolves a spoken room name to a device. Both sides are
// normalized so "The Media Room" finds a device named "Media Room" and
// vice versa. Ambiguous matches prefer the shortest device name, then
// alphabetical order.
func (r *Registry) Match(room string) (*Device, error) {
	want := normalizeRoom(room)
	if want == "" {
		return nil, apperrors.NewValidationError("Room name is required", nil)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Device
	for _, device := range r.devices {
		got := normalizeRoom(device.Name)
		if got != want && !strings.Contains(got, want) && !strings.Contains(want, got) {
			continue
		}
		if best == nil || betterMatch(device, best) {
			best = device
		}
	}
	if best == nil {
		return nil, apperrors.NewDeviceNotFoundError(room)
	}
	return best, nil
}

func betterMatch(candidate, incumbent *Device) bool {
	if len(candidate.Name) != len(incumbent.Name) {
		return len(candidate.Name) < len(incumbent.Name)
	}
	return candidate.Name < incumbent.Name
}

// normalizeRoom lowercases, trims and strips the word "the" so articles
// in speech never break the match.
func normalizeRoom(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "the ")
	s = strings.ReplaceAll(s, " the ", " ")
	return strings.Join(strings.Fields(s), " ")
}
