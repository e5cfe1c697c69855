package models

import (
	"strings"
	"sync"
	"time"
)

const (
	KindStation = "station"
	KindObject  = "object"
)

// AprsPoint is an entity tracked by the station store.
type AprsPoint interface {
	Ident() string
	Kind() string
	Descr() string
	Position() (LatLng, bool)
	Updated() time.Time
	Expired(now time.Time, ttl time.Duration) bool
	IsPersistent() bool
	SetPersistent(bool)
	IsChanging() bool
	ResetChanging()
	IsInside(uleft, lright UTMRef) bool
	Snapshot() PointRecord
}

type TrailItem struct {
	Time time.Time `json:"time"`
	Pos  LatLng    `json:"pos"`
	Path string    `json:"path,omitempty"`
}

// PointRecord is the serialized form of a point, used for checkpoints and
// the status API.
type PointRecord struct {
	Kind       string      `json:"kind"`
	Ident      string      `json:"ident"`
	Descr      string      `json:"descr,omitempty"`
	Pos        *LatLng     `json:"pos,omitempty"`
	Symbol     string      `json:"symbol,omitempty"`
	Path       string      `json:"path,omitempty"`
	Source     string      `json:"source,omitempty"`
	Updated    time.Time   `json:"updated"`
	Persistent bool        `json:"persistent,omitempty"`
	Trail      []TrailItem `json:"trail,omitempty"`
	Owner      string      `json:"owner,omitempty"`
	Name       string      `json:"name,omitempty"`
	Killed     bool        `json:"killed,omitempty"`
	Timeless   bool        `json:"timeless,omitempty"`
}

// point holds what stations and objects share.
type point struct {
	mu         sync.RWMutex
	ident      string
	descr      string
	pos        *LatLng
	symbol     string
	updated    time.Time
	persistent bool
	changing   bool
}

func (p *point) Ident() string { return p.ident }

func (p *point) Descr() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.descr
}

func (p *point) SetDescr(descr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.descr = descr
}

func (p *point) Position() (LatLng, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pos == nil {
		return LatLng{}, false
	}
	return *p.pos, true
}

func (p *point) Symbol() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.symbol
}

func (p *point) Updated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updated
}

func (p *point) Touch(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = t
}

func (p *point) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.Updated()) > ttl
}

func (p *point) IsPersistent() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.persistent
}

func (p *point) SetPersistent(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.persistent = v
}

// IsChanging reports whether the position moved since the last reset.
func (p *point) IsChanging() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.changing
}

func (p *point) ResetChanging() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changing = false
}

func (p *point) IsInside(uleft, lright UTMRef) bool {
	pos, ok := p.Position()
	return ok && Inside(pos, uleft, lright)
}

// setPos must be called with the lock held. It returns the previous position.
func (p *point) setPos(pos LatLng, symbol string, t time.Time) *LatLng {
	prev := p.pos
	if prev == nil || *prev != pos {
		p.changing = true
	}
	p.pos = &pos
	p.symbol = symbol
	p.updated = t
	return prev
}

func (p *point) record(kind string) PointRecord {
	r := PointRecord{
		Kind:       kind,
		Ident:      p.ident,
		Descr:      p.descr,
		Symbol:     p.symbol,
		Updated:    p.updated,
		Persistent: p.persistent,
	}
	if p.pos != nil {
		pos := *p.pos
		r.Pos = &pos
	}
	return r
}

func (p *point) load(r PointRecord) {
	p.ident = r.Ident
	p.descr = r.Descr
	p.symbol = r.Symbol
	p.updated = r.Updated
	p.persistent = r.Persistent
	if r.Pos != nil {
		pos := *r.Pos
		p.pos = &pos
	}
}

// Station is a station heard on some channel.
type Station struct {
	point
	path     string
	source   string
	trail    []TrailItem
	trailLen int
}

func NewStation(ident string, trailLen int) *Station {
	return &Station{point: point{ident: ident}, trailLen: trailLen}
}

func (s *Station) Kind() string { return KindStation }

func (s *Station) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *Station) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Heard records that the station was heard on a channel without a position.
func (s *Station) Heard(t time.Time, path, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = t
	s.path = path
	s.source = source
}

// Update sets a new position. The previous position, if it differs, is
// appended to the trail.
func (s *Station) Update(t time.Time, pos LatLng, symbol, path, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.setPos(pos, symbol, t)
	s.path = path
	s.source = source
	if prev != nil && *prev != pos && s.trailLen > 0 {
		s.trail = append(s.trail, TrailItem{Time: t, Pos: *prev, Path: path})
		if len(s.trail) > s.trailLen {
			s.trail = s.trail[len(s.trail)-s.trailLen:]
		}
	}
}

// Trail returns the previous positions, oldest first.
func (s *Station) Trail() []TrailItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TrailItem, len(s.trail))
	copy(out, s.trail)
	return out
}

func (s *Station) Snapshot() PointRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.record(KindStation)
	r.Path = s.path
	r.Source = s.source
	if len(s.trail) > 0 {
		r.Trail = make([]TrailItem, len(s.trail))
		copy(r.Trail, s.trail)
	}
	return r
}

func StationFromRecord(r PointRecord, trailLen int) *Station {
	s := NewStation(r.Ident, trailLen)
	s.load(r)
	s.path = r.Path
	s.source = r.Source
	s.trail = r.Trail
	if trailLen > 0 && len(s.trail) > trailLen {
		s.trail = s.trail[len(s.trail)-trailLen:]
	}
	return s
}

// AprsObject is an object or item reported by an owning station. It is
// identified as name@owner.
type AprsObject struct {
	point
	name     string
	owner    string
	killed   bool
	timeless bool
}

// ObjectIdent returns the store key of an object.
func ObjectIdent(name, owner string) string {
	return name + "@" + owner
}

// SplitIdent returns the object name and owner of an ident. ok is false for
// station idents.
func SplitIdent(ident string) (name, owner string, ok bool) {
	i := strings.LastIndexByte(ident, '@')
	if i < 0 {
		return ident, "", false
	}
	return ident[:i], ident[i+1:], true
}

func NewObject(owner, name string) *AprsObject {
	return &AprsObject{
		point: point{ident: ObjectIdent(name, owner)},
		name:  name,
		owner: owner,
	}
}

func (o *AprsObject) Kind() string  { return KindObject }
func (o *AprsObject) Name() string  { return o.name }
func (o *AprsObject) Owner() string { return o.owner }

func (o *AprsObject) Update(t time.Time, pos LatLng, symbol, descr string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setPos(pos, symbol, t)
	o.descr = descr
	o.killed = false
}

// Kill marks the object as deleted. It stays in the store until removed or
// garbage collected.
func (o *AprsObject) Kill() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.killed = true
}

func (o *AprsObject) IsKilled() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.killed
}

// SetTimeless marks an object that is never taken over by another owner.
func (o *AprsObject) SetTimeless(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeless = v
}

func (o *AprsObject) IsTimeless() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.timeless
}

func (o *AprsObject) Snapshot() PointRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r := o.record(KindObject)
	r.Name = o.name
	r.Owner = o.owner
	r.Killed = o.killed
	r.Timeless = o.timeless
	return r
}

func ObjectFromRecord(r PointRecord) *AprsObject {
	o := NewObject(r.Owner, r.Name)
	o.load(r)
	o.killed = r.Killed
	o.timeless = r.Timeless
	return o
}

// PointFromRecord rebuilds a point from its serialized form.
func PointFromRecord(r PointRecord, trailLen int) (AprsPoint, bool) {
	switch r.Kind {
	case KindStation:
		return StationFromRecord(r, trailLen), true
	case KindObject:
		return ObjectFromRecord(r), true
	default:
		return nil, false
	}
}

// ObjectSpec describes an object announced by this server.
type ObjectSpec struct {
	Name     string `json:"name"`
	Pos      LatLng `json:"pos"`
	Symbol   string `json:"symbol"`
	Descr    string `json:"descr,omitempty"`
	Timeless bool   `json:"timeless,omitempty"`
}
