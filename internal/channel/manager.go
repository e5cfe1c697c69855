package channel

import (
	"aprsd/internal/dupcheck"
	"aprsd/internal/providers"
	"aprsd/internal/structures"
	"context"
	"errors"
	"fmt"
	"github.com/hashicorp/go-multierror"
	"sort"
	"sync"
)

// Constructor builds a channel of one type from its configuration.
type Constructor func(cfg structures.ChannelConfig, conf *structures.Config, deps Deps) (Channel, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a channel type available by its type tag. It is called from
// init functions and panics on a duplicate tag.
func Register(tname string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[tname]; ok {
		panic("channel: type registered twice: " + tname)
	}
	registry[tname] = ctor
}

// Types lists the registered type tags.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func lookup(tname string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[tname]
	return ctor, ok
}

type ManagerInterface interface {
	NewInstance(cfg structures.ChannelConfig) (Channel, error)
	LoadAll() error
	Get(id string) Channel
	Keys() []string
	IsBackup(id string) bool
	AddBackup(id string)
	AddReceiver(r Receiver)
	StartAll(ctx context.Context)
	Restart(ctx context.Context, id string) error
	CloseAll() error
	Stats() []Stats
}

// Manager owns the configured channel instances.
type Manager struct {
	conf   *structures.Config
	logger providers.Logger
	deps   Deps

	mu        sync.RWMutex
	instances map[string]Channel
	order     []string
	backups   map[string]bool
	receivers []Receiver
}

func NewManager(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, packets providers.PacketLoggerInterface, dup dupcheck.CheckerInterface) *Manager {
	return &Manager{
		conf:   conf,
		logger: logger,
		deps: Deps{
			Dup:     dup,
			Logger:  logger,
			Metrics: metrics,
			Packets: packets,

			HeardLimit: conf.Stations.HeardLimit,
		},
		instances: make(map[string]Channel),
		backups:   make(map[string]bool),
	}
}

// NewInstance constructs a channel from its configuration and registers it
// under its id.
func (m *Manager) NewInstance(cfg structures.ChannelConfig) (Channel, error) {
	if cfg.Id == "" {
		return nil, &ConfigurationError{Channel: cfg.Type, Key: "id", Err: errors.New("missing")}
	}
	ctor, ok := lookup(cfg.Type)
	if !ok {
		return nil, &ConfigurationError{Channel: cfg.Id, Key: "type", Err: fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.instances[cfg.Id]; exists {
		return nil, &ConfigurationError{Channel: cfg.Id, Err: errors.New("duplicate channel id")}
	}
	ch, err := ctor(cfg, m.conf, m.deps)
	if err != nil {
		return nil, err
	}
	for _, r := range m.receivers {
		ch.AddReceiver(r)
	}
	m.instances[cfg.Id] = ch
	m.order = append(m.order, cfg.Id)
	if cfg.Backup {
		m.backups[cfg.Id] = true
	}
	m.logger.Infof(providers.TypeChannel, "channel %s (%s) created: %s", cfg.Id, cfg.Type, ch.Descr())
	return ch, nil
}

// LoadAll creates every configured channel. A channel that fails to build is
// logged and skipped; the others are still created. The returned error
// collects all failures.
func (m *Manager) LoadAll() error {
	var result error
	for _, cfg := range m.conf.Channels {
		if _, err := m.NewInstance(cfg); err != nil {
			m.logger.Errorf(providers.TypeChannel, "channel %s not loaded: %v", cfg.Id, err)
			result = multierror.Append(result, err)
		}
	}
	return result
}

func (m *Manager) Get(id string) Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[id]
}

// Keys returns the channel ids in creation order.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

func (m *Manager) IsBackup(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backups[id]
}

func (m *Manager) AddBackup(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[id] = true
}

// AddReceiver subscribes r to every current and future channel.
func (m *Manager) AddReceiver(r Receiver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receivers = append(m.receivers, r)
	for _, id := range m.order {
		m.instances[id].AddReceiver(r)
	}
}

func (m *Manager) channels() []Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Channel, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.instances[id])
	}
	return out
}

// StartAll starts every channel that is not a backup.
func (m *Manager) StartAll(ctx context.Context) {
	for _, ch := range m.channels() {
		if m.IsBackup(ch.ID()) {
			continue
		}
		ch.Start(ctx)
	}
}

// Restart closes a channel and starts it again with a fresh retry budget.
func (m *Manager) Restart(ctx context.Context, id string) error {
	ch := m.Get(id)
	if ch == nil {
		return fmt.Errorf("channel %s: not found", id)
	}
	if err := ch.Close(); err != nil {
		return err
	}
	ch.Start(ctx)
	return nil
}

func (m *Manager) CloseAll() error {
	var result error
	for _, ch := range m.channels() {
		if err := ch.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("channel %s: %w", ch.ID(), err))
		}
	}
	return result
}

func (m *Manager) Stats() []Stats {
	chans := m.channels()
	stats := make([]Stats, 0, len(chans))
	for _, ch := range chans {
		s := ch.Stats()
		s.Backup = m.IsBackup(ch.ID())
		stats = append(stats, s)
	}
	return stats
}
