// Package stationdb is the in-memory station store with periodic
// checkpointing to a compressed record file.
package stationdb

import (
	"aprsd/internal/models"
	"aprsd/internal/providers"
	"aprsd/internal/stationdb/interfaces"
	"aprsd/internal/structures"
	"errors"
	"fmt"
	"github.com/dustin/go-humanize"
	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const (
	defaultExpireTime     = 60 * time.Minute
	defaultRouteRetention = 24 * time.Hour
	defaultHistRetention  = 7 * 24 * time.Hour
	defaultOwnCall        = "NOCALL"
	btreeDegree           = 32
	patternCacheSize      = 128
)

// ErrCorruptSnapshot wraps any structural failure while restoring.
var ErrCorruptSnapshot = errors.New("corrupt station snapshot")

type StoreInterface interface {
	Get(id string) models.AprsPoint
	GetAt(id string, t time.Time) models.AprsPoint
	GetStation(id string) *models.Station
	NewStation(id string) *models.Station
	GetOrCreateStation(id string) *models.Station
	AddStation(s *models.Station)
	Put(p models.AprsPoint)
	NewObject(owner, name string) *models.AprsObject
	AddOwnObject(spec models.ObjectSpec) *models.AprsObject
	Remove(id string)
	SearchPrefix(text string) []models.AprsPoint
	SearchPattern(text string) ([]models.AprsPoint, error)
	SearchBox(uleft, lright *models.UTMRef) []models.AprsPoint
	DeactivateSimilar(name, owner string) int
	Len() int
	Routes() *models.RouteInfo
	OwnCall() string
	OwnObjects() interfaces.OwnObjectsInterface
	MarkChanged()
	IsDirty() bool
	Checkpoint() error
	Restore() error
	GarbageCollect(now time.Time) int
	CheckMoving() bool
}

// Store holds every tracked station and object, ordered by ident. The map
// and route table are replaced as a unit on restore.
type Store struct {
	conf     *structures.Config
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	files    *FileManager
	msgs     interfaces.MessageProcessorInterface
	own      interfaces.OwnObjectsInterface
	hist     interfaces.HistoryInterface
	patterns *lru.Cache[string, *searchPattern]

	expire         time.Duration
	routeRetention time.Duration
	histRetention  time.Duration
	trailLen       int
	ownCall        string

	mu     sync.RWMutex
	items  *btree.BTreeG[entry]
	routes *models.RouteInfo
	dirty  atomic.Bool
	saveMu sync.Mutex
}

// entry is a tree item. A zero p is used as a search key.
type entry struct {
	id string
	p  models.AprsPoint
}

func lessIdent(a, b entry) bool {
	return a.id < b.id
}

func newItems() *btree.BTreeG[entry] {
	return btree.NewG[entry](btreeDegree, lessIdent)
}

// NewStore creates an empty store. hist may be nil.
func NewStore(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, files *FileManager, msgs interfaces.MessageProcessorInterface, own interfaces.OwnObjectsInterface, hist interfaces.HistoryInterface) *Store {
	patterns, _ := lru.New[string, *searchPattern](patternCacheSize)
	s := &Store{
		conf:           conf,
		logger:         logger,
		metrics:        metrics,
		files:          files,
		msgs:           msgs,
		own:            own,
		hist:           hist,
		patterns:       patterns,
		expire:         conf.Stations.ExpireTime,
		routeRetention: conf.Stations.RouteRetention,
		histRetention:  conf.History.Retention,
		trailLen:       conf.Stations.TrailLength,
		ownCall:        conf.Stations.OwnCall,
		items:          newItems(),
		routes:         models.NewRouteInfo(),
	}
	if s.expire <= 0 {
		s.expire = defaultExpireTime
	}
	if s.routeRetention <= 0 {
		s.routeRetention = defaultRouteRetention
	}
	if s.histRetention <= 0 {
		s.histRetention = defaultHistRetention
	}
	if s.ownCall == "" {
		s.ownCall = defaultOwnCall
	}
	return s
}

func (s *Store) Get(id string) models.AprsPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items.Get(entry{id: id})
	if !ok {
		return nil
	}
	return e.p
}

// GetAt returns the current point for a zero time, otherwise asks the
// history database.
func (s *Store) GetAt(id string, t time.Time) models.AprsPoint {
	if t.IsZero() {
		return s.Get(id)
	}
	if s.hist == nil {
		return nil
	}
	p, err := s.hist.ItemAt(id, t)
	if err != nil {
		s.logger.Warnf(providers.TypeStore, "History lookup of %s at %s failed: %s", id, t.Format(time.RFC3339), err)
		return nil
	}
	return p
}

func (s *Store) GetStation(id string) *models.Station {
	st, _ := s.Get(id).(*models.Station)
	return st
}

func (s *Store) NewStation(id string) *models.Station {
	st := models.NewStation(id, s.trailLen)
	s.Put(st)
	return st
}

// GetOrCreateStation returns the station id, creating it if the ident is
// unused. Any other point under the same ident is replaced.
func (s *Store) GetOrCreateStation(id string) *models.Station {
	s.mu.Lock()
	if e, ok := s.items.Get(entry{id: id}); ok {
		if st, ok := e.p.(*models.Station); ok {
			s.mu.Unlock()
			return st
		}
	}
	st := models.NewStation(id, s.trailLen)
	s.items.ReplaceOrInsert(entry{id: id, p: st})
	n := s.items.Len()
	s.mu.Unlock()
	s.dirty.Store(true)
	s.metrics.SetStationsTotal(n)
	return st
}

func (s *Store) AddStation(st *models.Station) {
	s.Put(st)
}

func (s *Store) Put(p models.AprsPoint) {
	s.mu.Lock()
	s.items.ReplaceOrInsert(entry{id: p.Ident(), p: p})
	n := s.items.Len()
	s.mu.Unlock()
	s.dirty.Store(true)
	s.metrics.SetStationsTotal(n)
}

// NewObject creates the object name@owner, replacing any previous one.
func (s *Store) NewObject(owner, name string) *models.AprsObject {
	o := models.NewObject(owner, name)
	s.Put(o)
	return o
}

// AddOwnObject registers an object announced by this server and places it
// in the store.
func (s *Store) AddOwnObject(spec models.ObjectSpec) *models.AprsObject {
	s.own.Add(spec)
	o, ok := s.Get(models.ObjectIdent(spec.Name, s.ownCall)).(*models.AprsObject)
	if !ok {
		o = s.NewObject(s.ownCall, spec.Name)
	}
	o.Update(time.Now().UTC(), spec.Pos, spec.Symbol, spec.Descr)
	o.SetTimeless(spec.Timeless)
	o.SetPersistent(true)
	s.DeactivateSimilar(spec.Name, s.ownCall)
	s.dirty.Store(true)
	return o
}

// Remove deletes a point. Removing one of our own objects also drops it from
// the own objects registry.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.removeLocked(id)
	n := s.items.Len()
	s.mu.Unlock()
	s.metrics.SetStationsTotal(n)
}

func (s *Store) removeLocked(id string) {
	if name, owner, ok := models.SplitIdent(id); ok && owner == s.ownCall {
		s.own.Delete(name)
	}
	s.items.Delete(entry{id: id})
	s.dirty.Store(true)
}

// DeactivateSimilar kills every object called name that is owned by another
// station and is not timeless. It returns the number of objects killed.
func (s *Store) DeactivateSimilar(name, owner string) int {
	prefix := name + "@"
	var victims []*models.AprsObject

	s.mu.RLock()
	s.items.AscendGreaterOrEqual(entry{id: prefix}, func(e entry) bool {
		if !strings.HasPrefix(e.id, prefix) {
			return false
		}
		if o, ok := e.p.(*models.AprsObject); ok && o.Owner() != owner && !o.IsTimeless() && !o.IsKilled() {
			victims = append(victims, o)
		}
		return true
	})
	s.mu.RUnlock()

	for _, o := range victims {
		o.Kill()
		s.logger.Infof(providers.TypeStore, "Object overtaken/deactivated: %s", o.Ident())
	}
	if len(victims) > 0 {
		s.dirty.Store(true)
	}
	return len(victims)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Len()
}

func (s *Store) Routes() *models.RouteInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routes
}

func (s *Store) OwnCall() string { return s.ownCall }

func (s *Store) OwnObjects() interfaces.OwnObjectsInterface { return s.own }

func (s *Store) MsgProcessor() interfaces.MessageProcessorInterface { return s.msgs }

func (s *Store) MarkChanged() { s.dirty.Store(true) }

func (s *Store) IsDirty() bool {
	return s.dirty.Load() || s.msgs.Changed() || s.own.Changed()
}

// all returns the points in ident order.
func (s *Store) all() []models.AprsPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AprsPoint, 0, s.items.Len())
	s.items.Ascend(func(e entry) bool {
		out = append(out, e.p)
		return true
	})
	return out
}

// Checkpoint writes the store to its file if anything changed since the last
// successful checkpoint. On failure the store stays dirty.
func (s *Store) Checkpoint() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if !s.IsDirty() {
		return nil
	}
	start := time.Now()
	s.dirty.Store(false)

	routes := s.Routes()
	points := s.all()
	err := s.files.SaveToFile(s.conf.Persistence.FilePath, func(w *models.RecordWriter) error {
		if err := w.Write(models.RecordRoutes, routes.Edges()); err != nil {
			return err
		}
		if err := s.msgs.Save(w); err != nil {
			return err
		}
		if err := s.own.Save(w); err != nil {
			return err
		}
		for _, p := range points {
			if err := w.Write(models.RecordPoint, p.Snapshot()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.dirty.Store(true)
		return fmt.Errorf("checkpoint %s: %w", s.conf.Persistence.FilePath, err)
	}
	s.metrics.ObservePersistenceDuration(time.Since(start))
	s.logger.Infof(providers.TypeStore, "Saved %d points to %s", len(points), s.conf.Persistence.FilePath)
	return nil
}

// Restore loads the checkpoint file. The current contents are replaced only
// if the whole file was read; otherwise the store starts empty with a fresh
// route table and the error is returned.
func (s *Store) Restore() error {
	items := newItems()
	var routes *models.RouteInfo
	var commits []func()

	found, err := s.files.LoadFromFile(s.conf.Persistence.FilePath, func(r *models.RecordReader) error {
		var edges []models.RouteEdge
		if err := r.Expect(models.RecordRoutes, &edges); err != nil {
			return err
		}
		routes = models.RouteInfoFromEdges(edges)

		commit, err := s.msgs.Restore(r)
		if err != nil {
			return err
		}
		commits = append(commits, commit)
		if commit, err = s.own.Restore(r); err != nil {
			return err
		}
		commits = append(commits, commit)

		for {
			t, payload, err := r.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if t != models.RecordPoint {
				return fmt.Errorf("unexpected %s record", t)
			}
			var rec models.PointRecord
			if err := models.Decode(t, payload, &rec); err != nil {
				return err
			}
			p, ok := models.PointFromRecord(rec, s.trailLen)
			if !ok {
				return fmt.Errorf("point %s has unknown kind %q", rec.Ident, rec.Kind)
			}
			items.ReplaceOrInsert(entry{id: p.Ident(), p: p})
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Errorf(providers.TypeStore, "Cannot restore %s: %s; starting with an empty store", s.conf.Persistence.FilePath, err)
		s.items = newItems()
		s.routes = models.NewRouteInfo()
		if !found {
			return fmt.Errorf("restore %s: %w", s.conf.Persistence.FilePath, err)
		}
		return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if !found {
		s.logger.Infof(providers.TypeStore, "No station data at %s, starting empty", s.conf.Persistence.FilePath)
		return nil
	}
	for _, commit := range commits {
		commit()
	}
	s.items = items
	s.routes = routes
	s.dirty.Store(false)
	s.metrics.SetStationsTotal(items.Len())
	s.logger.Infof(providers.TypeStore, "Restored %d points from %s", items.Len(), s.conf.Persistence.FilePath)
	return nil
}

// GarbageCollect removes expired points that are not persistent together
// with their route nodes, prunes old route edges and returns memory to the
// OS. It returns the number of points removed.
func (s *Store) GarbageCollect(now time.Time) int {
	s.mu.Lock()
	var expired []string
	s.items.Ascend(func(e entry) bool {
		if e.p.Expired(now, s.expire) && !e.p.IsPersistent() {
			expired = append(expired, e.id)
		}
		return true
	})
	for _, id := range expired {
		s.logger.Debugf(providers.TypeStore, "Removing: %s", id)
		s.removeLocked(id)
		s.routes.RemoveNode(id)
	}
	routes := s.routes
	n := s.items.Len()
	s.mu.Unlock()

	edges := routes.RemoveOldEdges(now.Add(-s.routeRetention))
	if s.hist != nil {
		if _, err := s.hist.Prune(now.Add(-s.histRetention)); err != nil {
			s.logger.Warnf(providers.TypeStore, "Cannot prune history: %s", err)
		}
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	debug.FreeOSMemory()
	runtime.ReadMemStats(&after)
	freed := uint64(0)
	if before.HeapInuse > after.HeapInuse {
		freed = before.HeapInuse - after.HeapInuse
	}

	s.metrics.SetStationsTotal(n)
	s.logger.Infof(providers.TypeStore, "Garbage collection: removed %d points and %d route edges, %d left, freed %s, heap in use %s",
		len(expired), edges, n, humanize.Bytes(freed), humanize.Bytes(after.HeapInuse))
	return len(expired)
}

// CheckMoving marks the store dirty if any point moved since the last check.
func (s *Store) CheckMoving() bool {
	moving := false
	for _, p := range s.all() {
		if p.IsChanging() {
			moving = true
			p.ResetChanging()
		}
	}
	if moving {
		s.dirty.Store(true)
	}
	return moving
}
