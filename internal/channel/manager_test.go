package channel

import (
	"aprsd/internal/packet"
	"aprsd/internal/structures"
	"aprsd/internal/testutil"
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChannel is a transport-less channel for registry tests.
type stubChannel struct {
	*Core
	starts   int
	closes   int
	closeErr error
}

func (s *stubChannel) Start(_ context.Context) {
	s.starts++
	s.setState(StateRunning)
}

func (s *stubChannel) Close() error {
	s.closes++
	s.setState(StateOff)
	return s.closeErr
}

func (s *stubChannel) SendPacket(_ *packet.Packet) error { return nil }

func init() {
	Register("stub", func(cfg structures.ChannelConfig, _ *structures.Config, deps Deps) (Channel, error) {
		core, err := NewCore(cfg.Id, "stub "+cfg.Id, cfg.Filter, 1, deps)
		if err != nil {
			return nil, err
		}
		s := &stubChannel{Core: core}
		if v, ok := cfg.Options["closeerr"]; ok {
			s.closeErr = errors.New(v.(string))
		}
		return s, nil
	})
}

func newTestManager(channels ...structures.ChannelConfig) (*Manager, *testEnv) {
	env := newTestEnv()
	conf := &structures.Config{Channels: channels}
	return NewManager(conf, env.logger, env.metrics, env.packets, env.deps.Dup), env
}

func TestRegistry_Types(t *testing.T) {
	types := Types()
	assert.Contains(t, types, TypeNetwork)
	assert.Contains(t, types, TypeSerial)
	assert.Contains(t, types, "stub")
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(TypeNetwork, NewNetworkChannel)
	})
}

func TestManager_NewInstance(t *testing.T) {
	m, _ := newTestManager()

	ch, err := m.NewInstance(structures.ChannelConfig{Id: "a", Type: "stub"})
	require.NoError(t, err)
	assert.Same(t, ch, m.Get("a"))
	assert.Nil(t, m.Get("missing"))

	_, err = m.NewInstance(structures.ChannelConfig{Id: "a", Type: "stub"})
	var cerr *ConfigurationError
	assert.ErrorAs(t, err, &cerr)

	_, err = m.NewInstance(structures.ChannelConfig{Id: "b", Type: "ax25"})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = m.NewInstance(structures.ChannelConfig{Type: "stub"})
	assert.ErrorAs(t, err, &cerr)
}

func TestManager_LoadAllSkipsBrokenChannels(t *testing.T) {
	m, env := newTestManager(
		structures.ChannelConfig{Id: "a", Type: "stub"},
		structures.ChannelConfig{Id: "b", Type: "stub", Filter: "(["},
		structures.ChannelConfig{Id: "c", Type: "nope"},
		structures.ChannelConfig{Id: "d", Type: "stub", Backup: true},
	)

	err := m.LoadAll()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)

	assert.Equal(t, []string{"a", "d"}, m.Keys())
	assert.True(t, m.IsBackup("d"))
	assert.False(t, m.IsBackup("a"))
	assert.True(t, env.logger.Contains("error", "channel b not loaded"))
}

func TestManager_StartAllSkipsBackups(t *testing.T) {
	m, _ := newTestManager(
		structures.ChannelConfig{Id: "a", Type: "stub"},
		structures.ChannelConfig{Id: "b", Type: "stub"},
	)
	require.NoError(t, m.LoadAll())
	m.AddBackup("b")

	m.StartAll(context.Background())
	assert.Equal(t, 1, m.Get("a").(*stubChannel).starts)
	assert.Equal(t, 0, m.Get("b").(*stubChannel).starts)

	require.NoError(t, m.Restart(context.Background(), "b"))
	assert.Equal(t, 1, m.Get("b").(*stubChannel).starts)
	assert.Equal(t, 1, m.Get("b").(*stubChannel).closes)
	assert.Error(t, m.Restart(context.Background(), "zzz"))

	stats := m.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].Id)
	assert.Equal(t, "RUNNING", stats[0].State)
	assert.True(t, stats[1].Backup)
}

func TestManager_CloseAllCollectsErrors(t *testing.T) {
	m, _ := newTestManager(
		structures.ChannelConfig{Id: "a", Type: "stub", Options: map[string]any{"closeerr": "boom"}},
		structures.ChannelConfig{Id: "b", Type: "stub"},
		structures.ChannelConfig{Id: "c", Type: "stub", Options: map[string]any{"closeerr": "bang"}},
	)
	require.NoError(t, m.LoadAll())

	err := m.CloseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel a: boom")
	assert.Contains(t, err.Error(), "channel c: bang")
	assert.Equal(t, 1, m.Get("b").(*stubChannel).closes)
}

func TestManager_AddReceiverReachesAllChannels(t *testing.T) {
	m, _ := newTestManager(structures.ChannelConfig{Id: "a", Type: "stub"})
	require.NoError(t, m.LoadAll())

	rcv := &testutil.MockReceiver{}
	m.AddReceiver(rcv)
	late, err := m.NewInstance(structures.ChannelConfig{Id: "late", Type: "stub"})
	require.NoError(t, err)

	m.Get("a").(*stubChannel).Ingest("LA7ECA>APRS:>one", false)
	late.(*stubChannel).Ingest("LA7ECA>APRS:>two", false)
	assert.Equal(t, 2, rcv.Count())
}

func TestManager_SharedDuplicateChecker(t *testing.T) {
	m, _ := newTestManager(
		structures.ChannelConfig{Id: "a", Type: "stub"},
		structures.ChannelConfig{Id: "b", Type: "stub"},
	)
	require.NoError(t, m.LoadAll())

	assert.True(t, m.Get("a").(*stubChannel).Ingest("LA7ECA>APRS,DIGI*:>same", false))
	assert.False(t, m.Get("b").(*stubChannel).Ingest("LA7ECA>APRS,TCPIP*:>same", false))
	assert.Equal(t, uint64(1), m.Get("b").Stats().Duplicates)
}
