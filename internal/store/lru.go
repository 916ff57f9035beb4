package store

import (
	"container/list"
	"sync"

	"github.com/deixis/verdict/internal/outcome"
)

// LRUStore keeps the most recently used records in memory and delegates
// to a backing Store on miss.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // front is most recent; values are *outcome.Record
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache holding up to cap records in front of
// back. Capacity below 1 is treated as 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches rec and writes it through to the backing store.
func (s *LRUStore) Save(rec *outcome.Record) error {
	s.put(rec)
	return s.back.Save(rec)
}

// Load returns the cached record, loading and caching it from the backing
// store on miss.
func (s *LRUStore) Load(runID string) (*outcome.Record, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		rec := e.Value.(*outcome.Record)
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.put(rec)
	return rec, nil
}

// Len returns the number of cached records.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *LRUStore) put(rec *outcome.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[rec.RunID]; ok {
		e.Value = rec
		s.order.MoveToFront(e)
		return
	}
	s.items[rec.RunID] = s.order.PushFront(rec)
	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*outcome.Record).RunID)
	}
}
