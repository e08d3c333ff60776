package client

import (
	"encoding/json"
	"sync"

	"github.com/daysofyou/internal/db"
)

// DraftCache is a TTL-free key to JSON blob store used to keep draft
// documents around between editor visits.
type DraftCache interface {
	Get(key string) (json.RawMessage, bool)
	Put(key string, blob json.RawMessage)
	Delete(key string)
}

// MemoryCache is the in-process DraftCache implementation.
type MemoryCache struct {
	mu    sync.RWMutex
	blobs map[string]json.RawMessage
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{blobs: make(map[string]json.RawMessage)}
}

func (m *MemoryCache) Get(key string) (json.RawMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	return blob, ok
}

func (m *MemoryCache) Put(key string, blob json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append(json.RawMessage(nil), blob...)
}

func (m *MemoryCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
}

// SessionContext carries per-editor state: which calendar is being
// edited and a local draft cache. It is passed explicitly to whatever
// needs it instead of living in ambient storage.
type SessionContext struct {
	CurrentCalendarID string
	Cache             DraftCache
}

// NewSessionContext creates a context backed by an in-memory cache.
func NewSessionContext() *SessionContext {
	return &SessionContext{Cache: NewMemoryCache()}
}

const draftKeyPrefix = "calendar-draft:"

// SaveDraft caches the latest local document for its calendar id.
func (s *SessionContext) SaveDraft(calendar db.Calendar) error {
	if s.Cache == nil || calendar.ID == "" {
		return nil
	}
	blob, err := json.Marshal(calendar)
	if err != nil {
		return err
	}
	s.Cache.Put(draftKeyPrefix+calendar.ID, blob)
	return nil
}

// LoadDraft returns the cached draft for a calendar id, if any.
func (s *SessionContext) LoadDraft(calendarID string) (*db.Calendar, bool) {
	if s.Cache == nil {
		return nil, false
	}
	blob, ok := s.Cache.Get(draftKeyPrefix + calendarID)
	if !ok {
		return nil, false
	}
	var calendar db.Calendar
	if err := json.Unmarshal(blob, &calendar); err != nil {
		return nil, false
	}
	return &calendar, true
}

// DropDraft removes the cached draft, typically after a delete.
func (s *SessionContext) DropDraft(calendarID string) {
	if s.Cache != nil {
		s.Cache.Delete(draftKeyPrefix + calendarID)
	}
}
