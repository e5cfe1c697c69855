package testutil

import (
	"aprsd/internal/models"
	"aprsd/internal/packet"
	"aprsd/internal/providers"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Contains reports whether a message at level contains substr.
func (m *MockLogger) Contains(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(e.Message(), substr) {
			return true
		}
	}
	return false
}

// MockMetrics implements providers.MetricsProviderInterface and keeps per
// channel counters.
type MockMetrics struct {
	mu          sync.Mutex
	Packets     map[string]int
	Duplicates  map[string]int
	Rejected    map[string]int
	Sent        map[string]int
	States      map[string]int
	Heard       map[string]int
	Stations    int
	Persistence []time.Duration
	CacheHits   map[string]int
	CacheMisses map[string]int
	Requests    map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Packets:     make(map[string]int),
		Duplicates:  make(map[string]int),
		Rejected:    make(map[string]int),
		Sent:        make(map[string]int),
		States:      make(map[string]int),
		Heard:       make(map[string]int),
		Requests:    make(map[string]int),
		CacheHits:   make(map[string]int),
		CacheMisses: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[fmt.Sprintf("%s %d", endpoint, status)]++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits(namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits[namespace]++
}

func (m *MockMetrics) IncCacheMisses(namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses[namespace]++
}

func (m *MockMetrics) ObservePersistenceDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persistence = append(m.Persistence, d)
}

func (m *MockMetrics) IncPackets(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Packets[channel]++
}

func (m *MockMetrics) IncDuplicates(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Duplicates[channel]++
}

func (m *MockMetrics) IncRejected(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected[channel]++
}

func (m *MockMetrics) IncSent(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent[channel]++
}

func (m *MockMetrics) SetChannelState(channel string, state int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States[channel] = state
}

func (m *MockMetrics) SetHeardTotal(channel string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Heard[channel] = count
}

func (m *MockMetrics) SetStationsTotal(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stations = count
}

func (m *MockMetrics) Get(counter map[string]int, channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[channel]
}

// MockPacketLogger implements providers.PacketLoggerInterface.
type MockPacketLogger struct {
	mu    sync.Mutex
	Lines []string
}

func (m *MockPacketLogger) Log(channel, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lines = append(m.Lines, "["+channel+"] "+line)
}

func (m *MockPacketLogger) Close() {}

// MockReceiver records every packet handed to it.
type MockReceiver struct {
	mu      sync.Mutex
	Packets []*packet.Packet
	Dups    []bool
}

func (m *MockReceiver) ReceivePacket(p *packet.Packet, dup bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Packets = append(m.Packets, p)
	m.Dups = append(m.Dups, dup)
}

func (m *MockReceiver) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Packets)
}

func (m *MockReceiver) Received() []*packet.Packet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*packet.Packet, len(m.Packets))
	copy(out, m.Packets)
	return out
}

// MockDupChecker implements dupcheck.CheckerInterface with a fixed answer
// per key, remembering every call.
type MockDupChecker struct {
	mu    sync.Mutex
	seen  map[string]bool
	Calls int
}

func NewMockDupChecker() *MockDupChecker {
	return &MockDupChecker{seen: make(map[string]bool)}
}

func (m *MockDupChecker) Check(from, to, report string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	key := from + ">" + to + ":" + report
	if m.seen[key] {
		return true
	}
	m.seen[key] = true
	return false
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockPersistable stores a list of strings as one record of type Type.
type MockPersistable struct {
	mu         sync.Mutex
	Type       models.RecordType
	Items      []string
	Dirty      bool
	SaveErr    error
	RestoreErr error
}

func (m *MockPersistable) Changed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Dirty
}

func (m *MockPersistable) Save(w *models.RecordWriter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := w.Write(m.Type, m.Items); err != nil {
		return err
	}
	m.Dirty = false
	return nil
}

func (m *MockPersistable) Restore(r *models.RecordReader) (func(), error) {
	if m.RestoreErr != nil {
		return nil, m.RestoreErr
	}
	var items []string
	if err := r.Expect(m.Type, &items); err != nil {
		return nil, err
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Items = items
		m.Dirty = false
	}, nil
}

func (m *MockPersistable) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Items...)
}

// MockOwnObjects keeps object names only.
type MockOwnObjects struct {
	MockPersistable
	Specs map[string]models.ObjectSpec
}

func NewMockOwnObjects() *MockOwnObjects {
	return &MockOwnObjects{
		MockPersistable: MockPersistable{Type: models.RecordOwnObjects},
		Specs:           make(map[string]models.ObjectSpec),
	}
}

func (m *MockOwnObjects) Add(spec models.ObjectSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Specs[spec.Name]; !ok {
		m.Items = append(m.Items, spec.Name)
	}
	m.Specs[spec.Name] = spec
	m.Dirty = true
}

func (m *MockOwnObjects) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Specs[name]; !ok {
		return false
	}
	delete(m.Specs, name)
	for i, n := range m.Items {
		if n == name {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			break
		}
	}
	m.Dirty = true
	return true
}

func (m *MockOwnObjects) List() []models.ObjectSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ObjectSpec, 0, len(m.Specs))
	for _, n := range m.Items {
		out = append(out, m.Specs[n])
	}
	return out
}

// MockHistory answers ItemAt from a fixed map.
type MockHistory struct {
	mu       sync.Mutex
	Points   map[string]models.AprsPoint
	Recorded []string
	Pruned   []time.Time
	Err      error
}

func (m *MockHistory) Prune(before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pruned = append(m.Pruned, before)
	return 0, m.Err
}

func (m *MockHistory) Record(p models.AprsPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded = append(m.Recorded, p.Ident())
	return m.Err
}

func (m *MockHistory) ItemAt(id string, _ time.Time) (models.AprsPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Points[id], nil
}
