package channel

import (
	"aprsd/internal/dupcheck"
	"aprsd/internal/packet"
	"aprsd/internal/providers"
	"fmt"
	"go.uber.org/atomic"
	"regexp"
	"slices"
	"sync"
	"time"
)

// Deps are the process wide collaborators shared by all channels.
type Deps struct {
	Dup     dupcheck.CheckerInterface
	Logger  providers.Logger
	Metrics providers.MetricsProviderInterface
	Packets providers.PacketLoggerInterface
	// HeardLimit caps the heard table. Zero means DefaultHeardLimit.
	HeardLimit int
}

// Core holds the state every transport shares. Transports embed it and feed
// received lines to Ingest from their read loop. The receiver list is copied
// on write so dispatch runs without holding the lock.
type Core struct {
	id     string
	descr  string
	filter *regexp.Regexp
	deps   Deps
	heard  *heardTable
	now    func() time.Time

	rcvMu     sync.RWMutex
	receivers []Receiver

	state      atomic.Int32
	packets    atomic.Uint64
	duplicates atomic.Uint64
	sent       atomic.Uint64
	rejected   atomic.Uint64
	heardFull  atomic.Bool
}

// NewCore creates the shared part of a channel. variants > 1 makes the heard
// table keep that many distinct paths per station.
func NewCore(id, descr, filter string, variants int, deps Deps) (*Core, error) {
	c := &Core{
		id:    id,
		descr: descr,
		deps:  deps,
		heard: newHeardTable(HeardTimeout, variants, deps.HeardLimit),
		now:   time.Now,
	}
	if filter != "" {
		re, err := regexp.Compile(`^(?:` + filter + `)$`)
		if err != nil {
			return nil, &ConfigurationError{Channel: id, Key: "filter", Err: err}
		}
		c.filter = re
	}
	return c, nil
}

func (c *Core) ID() string    { return c.id }
func (c *Core) Descr() string { return c.descr }

func (c *Core) State() State { return State(c.state.Load()) }

func (c *Core) IsActive() bool {
	s := c.State()
	return s == StateStarting || s == StateRunning
}

func (c *Core) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.deps.Logger.Debugf(providers.TypeChannel, "[%s] %s -> %s", c.descr, old, s)
	}
	c.deps.Metrics.SetChannelState(c.id, int(s))
}

func (c *Core) AddReceiver(r Receiver) {
	if r == nil {
		return
	}
	c.rcvMu.Lock()
	defer c.rcvMu.Unlock()
	c.receivers = append(slices.Clip(c.receivers), r)
}

func (c *Core) RemoveReceiver(r Receiver) {
	c.rcvMu.Lock()
	defer c.rcvMu.Unlock()
	for i, x := range c.receivers {
		if x == r {
			c.receivers = slices.Concat(c.receivers[:i], c.receivers[i+1:])
			return
		}
	}
}

func (c *Core) Receivers() []Receiver {
	c.rcvMu.RLock()
	defer c.rcvMu.RUnlock()
	return slices.Clone(c.receivers)
}

func (c *Core) Heard(call string) bool {
	_, ok := c.heard.get(call, c.now())
	return ok
}

func (c *Core) HeardPath(call string) (string, bool) {
	e, ok := c.heard.get(call, c.now())
	if !ok {
		return "", false
	}
	return e.Path, true
}

// HeardPaths returns the distinct paths recorded for a station, newest first.
func (c *Core) HeardPaths(call string) []string {
	e, ok := c.heard.get(call, c.now())
	if !ok {
		return nil
	}
	if e.Paths == nil {
		return []string{e.Path}
	}
	return slices.Clone(e.Paths)
}

func (c *Core) Stats() Stats {
	n := c.heard.len(c.now())
	c.deps.Metrics.SetHeardTotal(c.id, n)
	return Stats{
		Id:         c.id,
		Descr:      c.descr,
		State:      c.State().String(),
		Heard:      n,
		Packets:    c.packets.Load(),
		Duplicates: c.duplicates.Load(),
		Sent:       c.sent.Load(),
		Rejected:   c.rejected.Load(),
	}
}

func (c *Core) countSent() {
	c.sent.Inc()
	c.deps.Metrics.IncSent(c.id)
}

// Ingest parses a received line and runs it through the pipeline.
func (c *Core) Ingest(line string, knownDup bool) bool {
	if line == "" {
		c.reject(line, "empty line")
		return false
	}
	p, err := packet.Split(line)
	if err != nil {
		c.reject(line, err.Error())
		return false
	}
	return c.IngestPacket(p, knownDup)
}

// IngestPacket runs a packet through the pipeline: normalize, filter, count,
// duplicate check, heard update and dispatch to receivers. It returns true
// if the packet was accepted and not a duplicate.
func (c *Core) IngestPacket(raw *packet.Packet, knownDup bool) bool {
	if raw == nil {
		c.reject("", "nil packet")
		return false
	}
	p, err := packet.Normalize(raw)
	if err != nil {
		c.reject(packet.Format(raw), err.Error())
		return false
	}

	line := packet.Format(p)
	if c.filter != nil && !c.filter.MatchString(line) {
		c.reject(line, "filtered")
		return false
	}

	p.Source = c
	c.deps.Packets.Log(c.descr, line)
	c.packets.Inc()
	c.deps.Metrics.IncPackets(c.id)

	dup := c.deps.Dup.Check(p.From, p.To, p.Report) || knownDup
	if dup {
		c.duplicates.Inc()
		c.deps.Metrics.IncDuplicates(c.id)
	} else {
		path := p.Via
		if p.ThirdParty {
			path = raw.Via
		}
		if c.heard.put(p.From, path, c.now()) && c.heardFull.CompareAndSwap(false, true) {
			c.deps.Logger.Warnf(providers.TypeChannel, "Channel %s: heard table full, dropping stations heard less than %s ago", c.id, HeardTimeout)
		}
	}

	c.rcvMu.RLock()
	receivers := c.receivers
	c.rcvMu.RUnlock()
	for _, r := range receivers {
		r.ReceivePacket(p, dup)
	}
	return !dup
}

func (c *Core) reject(line, reason string) {
	c.rejected.Inc()
	c.deps.Metrics.IncRejected(c.id)
	c.deps.Logger.Debugf(providers.TypeChannel, "[%s] rejected %q: %s", c.descr, line, reason)
}

func (c *Core) String() string {
	return fmt.Sprintf("%s [%s]", c.id, c.descr)
}
