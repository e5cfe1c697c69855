// Package dupcheck detects packets seen recently on any channel.
package dupcheck

import (
	"aprsd/internal/structures"
	"github.com/coocood/freecache"
	"time"
)

const (
	DefaultWindow = 30 * time.Second
	defaultSizeMB = 4
)

var seen = []byte{1}

type CheckerInterface interface {
	Check(from, to, report string) bool
}

// Checker remembers (from, to, report) triples for a trailing window. Entries
// live in a fixed size ring buffer so memory stays bounded and old entries
// are overwritten as new ones arrive.
type Checker struct {
	cache  *freecache.Cache
	window int
}

func NewChecker(conf *structures.Config) CheckerInterface {
	return newChecker(conf, nil)
}

func newChecker(conf *structures.Config, timer freecache.Timer) *Checker {
	window := conf.DupCheck.Window
	if window <= 0 {
		window = DefaultWindow
	}
	size := conf.DupCheck.SizeMB
	if size <= 0 {
		size = defaultSizeMB
	}
	var cache *freecache.Cache
	if timer != nil {
		cache = freecache.NewCacheCustomTimer(size*1024*1024, timer)
	} else {
		cache = freecache.NewCache(size * 1024 * 1024)
	}
	return &Checker{
		cache:  cache,
		window: max(int(window/time.Second), 1),
	}
}

// Check returns true if the triple was seen within the window. The first
// caller remembers it; exactly one of several concurrent identical calls
// gets false.
func (c *Checker) Check(from, to, report string) bool {
	key := make([]byte, 0, len(from)+len(to)+len(report)+2)
	key = append(key, from...)
	key = append(key, '>')
	key = append(key, to...)
	key = append(key, ':')
	key = append(key, report...)

	prev, err := c.cache.GetOrSet(key, seen, c.window)
	if err != nil {
		// Entries too large for the cache cannot be tracked.
		return false
	}
	return prev != nil
}

func (c *Checker) Len() int64 {
	return c.cache.EntryCount()
}
