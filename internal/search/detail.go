package search

import (
	"container/list"
	"strings"
	"sync"

	"moviefinder/internal/domain"
	"moviefinder/internal/metrics"
)

// DetailIndex is a by-identity index of every movie seen so far, keyed by
// external id. Later writes replace earlier ones.
type DetailIndex struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
}

func NewDetailIndex(maxEntries int) *DetailIndex {
	return &DetailIndex{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (d *DetailIndex) Get(externalID string) (domain.Movie, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem, ok := d.entries[strings.TrimSpace(externalID)]
	if !ok {
		metrics.DetailCacheMissesTotal.Inc()
		return domain.Movie{}, false
	}
	metrics.DetailCacheHitsTotal.Inc()
	d.order.MoveToFront(elem)
	return elem.Value.(domain.Movie), true
}

func (d *DetailIndex) Put(movie domain.Movie) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.putLocked(movie)
}

// Ingest indexes every item of a list fetch under a single lock.
func (d *DetailIndex) Ingest(items []domain.Movie) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, item := range items {
		d.putLocked(item)
	}
}

func (d *DetailIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *DetailIndex) putLocked(movie domain.Movie) {
	key := strings.TrimSpace(movie.ExternalID)
	if key == "" {
		return
	}
	if elem, ok := d.entries[key]; ok {
		elem.Value = movie
		d.order.MoveToFront(elem)
		return
	}
	d.entries[key] = d.order.PushFront(movie)

	if d.maxEntries <= 0 {
		return
	}
	for len(d.entries) > d.maxEntries {
		oldest := d.order.Back()
		if oldest == nil {
			return
		}
		d.order.Remove(oldest)
		delete(d.entries, strings.TrimSpace(oldest.Value.(domain.Movie).ExternalID))
	}
}
