package client

import (
	"context"
	"sync"
	"time"

	"github.com/daysofyou/internal/db"
)

// SaveStatus is the editor's small save-state machine:
// idle -> saving -> saved -> idle, with error as the failure branch.
// Any new edit while saving or after an error re-enters saving.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

// Persister stores a full calendar document. *Client satisfies it.
type Persister interface {
	UpdateCalendar(ctx context.Context, id string, calendar db.Calendar) (*db.Calendar, error)
}

const (
	// defaultDebounce collapses bursts of edits into one network call.
	defaultDebounce = 900 * time.Millisecond
	// defaultSavedHold keeps the "saved" indicator up before idling.
	defaultSavedHold = 1200 * time.Millisecond
)

// EditSession binds a day editor to one calendar. Local edits apply
// synchronously so a preview can render with zero latency; persistence
// happens as debounced full-document writes. Every scheduled write is
// tagged with a monotonic token, and a response is only applied when
// its token is still the latest one, so a slow response can never
// clobber state produced by a newer edit.
type EditSession struct {
	mu        sync.Mutex
	persister Persister
	session   *SessionContext
	dayIndex  int

	calendar db.Calendar
	saved    *db.Calendar
	status   SaveStatus

	debounce  time.Duration
	savedHold time.Duration

	timer     *time.Timer
	idleTimer *time.Timer
	lastToken uint64
	closed    bool

	onStatus func(SaveStatus)
}

// EditSessionOption customizes an EditSession.
type EditSessionOption func(*EditSession)

// WithDebounce overrides the debounce window. Tests use tiny windows.
func WithDebounce(d time.Duration) EditSessionOption {
	return func(s *EditSession) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithSavedHold overrides how long the saved status lingers.
func WithSavedHold(d time.Duration) EditSessionOption {
	return func(s *EditSession) {
		if d > 0 {
			s.savedHold = d
		}
	}
}

// WithStatusListener registers a callback invoked on every save-status
// change. The callback runs with the session locked and must not call
// back into the session.
func WithStatusListener(fn func(SaveStatus)) EditSessionOption {
	return func(s *EditSession) { s.onStatus = fn }
}

// NewEditSession opens an editing session on one day of a calendar.
// The document is normalized to its full seven-day shape first.
func NewEditSession(p Persister, sess *SessionContext, calendar db.Calendar, dayIndex int, opts ...EditSessionOption) (*EditSession, error) {
	if dayIndex < 0 || dayIndex >= db.DayCount {
		return nil, db.ErrDayIndexOutOfRange
	}

	s := &EditSession{
		persister: p,
		session:   sess,
		dayIndex:  dayIndex,
		calendar:  db.EnsureShape(calendar, time.Now()),
		status:    SaveIdle,
		debounce:  defaultDebounce,
		savedHold: defaultSavedHold,
	}
	for _, opt := range opts {
		opt(s)
	}

	if sess != nil {
		sess.CurrentCalendarID = s.calendar.ID
	}
	return s, nil
}

// Update merges a field patch into the session's day, caches the new
// draft, and schedules a debounced persist. Consecutive updates within
// the debounce window collapse into a single write carrying the latest
// state. A failed earlier save does not block further edits.
func (s *EditSession) Update(patch db.DayPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	next, err := db.ApplyDayPatch(s.calendar, s.dayIndex, patch, time.Now())
	if err != nil {
		return err
	}
	s.calendar = next
	if s.session != nil {
		_ = s.session.SaveDraft(s.calendar)
	}

	s.scheduleSaveLocked()
	return nil
}

func (s *EditSession) scheduleSaveLocked() {
	s.setStatusLocked(SaveSaving)

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}

	s.lastToken++
	token := s.lastToken
	snapshot := s.calendar

	s.timer = time.AfterFunc(s.debounce, func() {
		s.flush(token, snapshot)
	})
}

// flush performs the network write outside the lock, then applies the
// result only when no newer edit superseded it in the meantime.
func (s *EditSession) flush(token uint64, snapshot db.Calendar) {
	result, err := s.persister.UpdateCalendar(context.Background(), snapshot.ID, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || token != s.lastToken {
		// A newer edit superseded this write; its own persist is
		// already scheduled or in flight. Drop the stale outcome.
		return
	}

	if err != nil {
		// Local edits are retained; the next edit retries.
		s.setStatusLocked(SaveError)
		return
	}

	s.saved = result
	s.setStatusLocked(SaveSaved)
	s.idleTimer = time.AfterFunc(s.savedHold, func() {
		s.idleReset(token)
	})
}

func (s *EditSession) idleReset(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && token == s.lastToken && s.status == SaveSaved {
		s.setStatusLocked(SaveIdle)
	}
}

func (s *EditSession) setStatusLocked(status SaveStatus) {
	if s.status == status {
		return
	}
	s.status = status
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

// Status returns the current save status.
func (s *EditSession) Status() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Calendar returns the local authoritative document.
func (s *EditSession) Calendar() db.Calendar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendar
}

// Saved returns the last server-acknowledged document, if any.
func (s *EditSession) Saved() *db.Calendar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Day returns the session's current day card.
func (s *EditSession) Day() db.Day {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendar.Days[s.dayIndex]
}

// Close cancels any pending debounce timer so navigating away from the
// editor cannot leave a dangling write behind.
func (s *EditSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}
