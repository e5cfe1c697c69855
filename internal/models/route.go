package models

import (
	"sort"
	"sync"
	"time"
)

// RouteInfo is the graph of which station was heard via which digipeater.
// Edges carry the time they were last seen.
type RouteInfo struct {
	mu    sync.RWMutex
	edges map[string]map[string]time.Time
}

type RouteEdge struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Time time.Time `json:"time"`
}

func NewRouteInfo() *RouteInfo {
	return &RouteInfo{edges: make(map[string]map[string]time.Time)}
}

func (r *RouteInfo) AddEdge(from, to string, t time.Time) {
	if from == "" || to == "" || from == to {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.link(from, to, t)
	r.link(to, from, t)
}

func (r *RouteInfo) link(a, b string, t time.Time) {
	m, ok := r.edges[a]
	if !ok {
		m = make(map[string]time.Time)
		r.edges[a] = m
	}
	if t.After(m[b]) {
		m[b] = t
	}
}

// Neighbours returns the stations linked to id, sorted.
func (r *RouteInfo) Neighbours(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.edges[id]))
	for n := range r.edges[id] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *RouteInfo) HasNode(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.edges[id]
	return ok
}

func (r *RouteInfo) Nodes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.edges)
}

// RemoveNode drops a station and every edge touching it.
func (r *RouteInfo) RemoveNode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n := range r.edges[id] {
		if m, ok := r.edges[n]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(r.edges, n)
			}
		}
	}
	delete(r.edges, id)
}

// RemoveOldEdges drops edges last seen before the given time and the nodes
// left without edges. It returns the number of edges removed.
func (r *RouteInfo) RemoveOldEdges(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for a, m := range r.edges {
		for b, t := range m {
			if t.Before(before) {
				delete(m, b)
				removed++
			}
		}
		if len(m) == 0 {
			delete(r.edges, a)
		}
	}
	return removed / 2
}

// Edges lists each edge once, ordered by endpoints.
func (r *RouteInfo) Edges() []RouteEdge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RouteEdge
	for a, m := range r.edges {
		for b, t := range m {
			if a < b {
				out = append(out, RouteEdge{From: a, To: b, Time: t})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func RouteInfoFromEdges(edges []RouteEdge) *RouteInfo {
	r := NewRouteInfo()
	for _, e := range edges {
		r.AddEdge(e.From, e.To, e.Time)
	}
	return r
}
