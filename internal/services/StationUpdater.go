package services

import (
	"aprsd/internal/models"
	"aprsd/internal/packet"
	"aprsd/internal/providers"
	"aprsd/internal/stationdb"
	"aprsd/internal/stationdb/interfaces"
	"time"
)

// StationUpdater applies accepted packets to the station store.
type StationUpdater struct {
	store  stationdb.StoreInterface
	hist   interfaces.HistoryInterface
	logger providers.Logger
	now    func() time.Time
}

// NewStationUpdater returns a receiver updating store. hist may be nil.
func NewStationUpdater(store stationdb.StoreInterface, hist interfaces.HistoryInterface, logger providers.Logger) *StationUpdater {
	return &StationUpdater{
		store:  store,
		hist:   hist,
		logger: logger,
		now:    time.Now,
	}
}

func sourceID(p *packet.Packet) string {
	if p.Source == nil {
		return ""
	}
	return p.Source.ID()
}

func symbol(pos packet.Position) string {
	return string([]byte{pos.SymTable, pos.Symbol})
}

func (u *StationUpdater) ReceivePacket(p *packet.Packet, dup bool) {
	if dup {
		return
	}
	now := u.now().UTC()
	source := sourceID(p)

	st := u.store.GetOrCreateStation(p.From)

	switch p.Type {
	case '!', '=', '/', '@':
		r, err := packet.DecodePosition(p)
		if err != nil {
			st.Heard(now, p.Via, source)
			u.logger.Debugf(providers.TypeStore, "No position in %s: %s", p, err)
			break
		}
		st.Update(now, models.LatLng{Lat: r.Pos.Lat, Lon: r.Pos.Lon}, symbol(r.Pos), p.Via, source)
		if r.Comment != "" {
			st.SetDescr(r.Comment)
		}
		u.record(st)
	case ';':
		st.Heard(now, p.Via, source)
		u.updateObject(p, now)
	default:
		st.Heard(now, p.Via, source)
	}

	u.addRoute(p, now)
	u.store.MarkChanged()
}

func (u *StationUpdater) updateObject(p *packet.Packet, now time.Time) {
	r, err := packet.ParseObject(p)
	if err != nil {
		u.logger.Debugf(providers.TypeStore, "Bad object report in %s: %s", p, err)
		return
	}
	ident := models.ObjectIdent(r.Object, p.From)
	o, _ := u.store.Get(ident).(*models.AprsObject)
	if r.Killed {
		if o != nil {
			o.Kill()
			u.logger.Debugf(providers.TypeStore, "Object killed: %s", ident)
		}
		return
	}
	if o == nil {
		o = u.store.NewObject(p.From, r.Object)
	}
	o.Update(now, models.LatLng{Lat: r.Pos.Lat, Lon: r.Pos.Lon}, symbol(r.Pos), r.Comment)
	u.store.DeactivateSimilar(r.Object, p.From)
	u.record(o)
}

// addRoute links the sender to the first digipeater that relayed it and
// each digipeater to the next.
func (u *StationUpdater) addRoute(p *packet.Packet, now time.Time) {
	rev := packet.ReversePath(p.Via)
	if rev == "" {
		return
	}
	hops := packet.Hops(rev)
	routes := u.store.Routes()
	prev := p.From
	for i := len(hops) - 1; i >= 0; i-- {
		routes.AddEdge(prev, hops[i], now)
		prev = hops[i]
	}
}

func (u *StationUpdater) record(pt models.AprsPoint) {
	if u.hist == nil {
		return
	}
	if err := u.hist.Record(pt); err != nil {
		u.logger.Warnf(providers.TypeStore, "Cannot record %s in history: %s", pt.Ident(), err)
	}
}
