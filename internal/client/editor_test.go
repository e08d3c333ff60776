package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/daysofyou/internal/db"
)

type persistResult struct {
	calendar *db.Calendar
	err      error
}

type persistCall struct {
	calendar db.Calendar
	respond  chan persistResult
}

// blockingPersister hands every save to the test, which decides when
// and how it completes.
type blockingPersister struct {
	calls chan persistCall
}

func newBlockingPersister() *blockingPersister {
	return &blockingPersister{calls: make(chan persistCall, 8)}
}

func (p *blockingPersister) UpdateCalendar(ctx context.Context, id string, calendar db.Calendar) (*db.Calendar, error) {
	call := persistCall{calendar: calendar, respond: make(chan persistResult)}
	p.calls <- call
	result := <-call.respond
	return result.calendar, result.err
}

func (p *blockingPersister) waitCall(t *testing.T, timeout time.Duration) persistCall {
	t.Helper()
	select {
	case call := <-p.calls:
		return call
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for a persist call")
		return persistCall{}
	}
}

func (p *blockingPersister) expectNoCall(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case <-p.calls:
		t.Fatalf("unexpected persist call")
	case <-time.After(within):
	}
}

func waitStatus(t *testing.T, s *EditSession, want SaveStatus, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Status() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status never reached %q, still %q", want, s.Status())
}

func testCalendar() db.Calendar {
	now := time.Now()
	return db.Calendar{
		ID:     "cal-1",
		UserID: "user-1",
		Name:   "Winter Wishes",
		Type:   db.CalendarType,
		Status: db.StatusDraft,
		Days:   db.DefaultDays(now),
	}
}

func messageOf(t *testing.T, cal db.Calendar) string {
	t.Helper()
	msg, ok := cal.Days[0].(db.MessageDay)
	if !ok {
		t.Fatalf("expected MessageDay, got %T", cal.Days[0])
	}
	return msg.Message
}

func TestEditSessionAppliesLocallyBeforeAnyNetwork(t *testing.T) {
	persister := newBlockingPersister()
	session, err := NewEditSession(persister, NewSessionContext(), testCalendar(), 0,
		WithDebounce(time.Hour))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()

	if err := session.Update(db.DayPatch{"message": "hello"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Local state reflects the edit immediately, driving the preview.
	if got := messageOf(t, session.Calendar()); got != "hello" {
		t.Fatalf("local state not updated, message=%q", got)
	}
	if session.Status() != SaveSaving {
		t.Fatalf("expected saving status, got %q", session.Status())
	}
	persister.expectNoCall(t, 30*time.Millisecond)
}

func TestEditSessionCollapsesBurstsIntoOneSave(t *testing.T) {
	persister := newBlockingPersister()
	session, err := NewEditSession(persister, NewSessionContext(), testCalendar(), 0,
		WithDebounce(30*time.Millisecond), WithSavedHold(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()

	for _, text := range []string{"h", "he", "hello"} {
		if err := session.Update(db.DayPatch{"message": text}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	call := persister.waitCall(t, time.Second)
	if got := messageOf(t, call.calendar); got != "hello" {
		t.Fatalf("persisted document should carry the latest state, got %q", got)
	}

	stored := call.calendar
	call.respond <- persistResult{calendar: &stored}

	// saved lingers only briefly before the machine returns to idle
	waitStatus(t, session, SaveIdle, time.Second)

	// The burst produced exactly one network call.
	persister.expectNoCall(t, 50*time.Millisecond)
	if session.Saved() == nil {
		t.Fatalf("saved document missing")
	}
}

func TestEditSessionDiscardsStaleResponse(t *testing.T) {
	persister := newBlockingPersister()
	session, err := NewEditSession(persister, NewSessionContext(), testCalendar(), 0,
		WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()

	if err := session.Update(db.DayPatch{"message": "first"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	firstCall := persister.waitCall(t, time.Second)

	// A newer edit arrives while the first write is still in flight.
	if err := session.Update(db.DayPatch{"message": "second"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	secondCall := persister.waitCall(t, time.Second)

	// The slow first response lands after the second was issued: stale.
	firstStored := firstCall.calendar
	firstCall.respond <- persistResult{calendar: &firstStored}

	secondStored := secondCall.calendar
	secondCall.respond <- persistResult{calendar: &secondStored}

	waitStatus(t, session, SaveSaved, time.Second)

	saved := session.Saved()
	if saved == nil {
		t.Fatalf("saved document missing")
	}
	if got := messageOf(t, *saved); got != "second" {
		t.Fatalf("stale response clobbered newer state: saved=%q", got)
	}
	if got := messageOf(t, session.Calendar()); got != "second" {
		t.Fatalf("local state lost: %q", got)
	}
}

func TestEditSessionKeepsLocalEditsOnFailure(t *testing.T) {
	persister := newBlockingPersister()
	session, err := NewEditSession(persister, NewSessionContext(), testCalendar(), 0,
		WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()

	if err := session.Update(db.DayPatch{"message": "precious words"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	call := persister.waitCall(t, time.Second)
	call.respond <- persistResult{err: errors.New("network down")}

	waitStatus(t, session, SaveError, time.Second)
	if got := messageOf(t, session.Calendar()); got != "precious words" {
		t.Fatalf("failure reverted local edits: %q", got)
	}

	// The next edit retries and recovers.
	if err := session.Update(db.DayPatch{"message": "precious words!"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if session.Status() != SaveSaving {
		t.Fatalf("new edit should re-enter saving, got %q", session.Status())
	}
	retry := persister.waitCall(t, time.Second)
	stored := retry.calendar
	retry.respond <- persistResult{calendar: &stored}
	waitStatus(t, session, SaveSaved, time.Second)
}

func TestEditSessionCloseCancelsPendingSave(t *testing.T) {
	persister := newBlockingPersister()
	session, err := NewEditSession(persister, NewSessionContext(), testCalendar(), 0,
		WithDebounce(30*time.Millisecond))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	if err := session.Update(db.DayPatch{"message": "unsent"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	session.Close()

	// Navigating away must not leave a dangling write behind.
	persister.expectNoCall(t, 100*time.Millisecond)

	if err := session.Update(db.DayPatch{"message": "after close"}); err != nil {
		t.Fatalf("update after close: %v", err)
	}
	persister.expectNoCall(t, 60*time.Millisecond)
}

func TestEditSessionNormalizesDocumentShape(t *testing.T) {
	persister := newBlockingPersister()
	calendar := testCalendar()
	calendar.Days = nil

	session, err := NewEditSession(persister, nil, calendar, 6, WithDebounce(time.Hour))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()

	if got := len(session.Calendar().Days); got != db.DayCount {
		t.Fatalf("expected normalized %d days, got %d", db.DayCount, got)
	}
	if _, ok := session.Day().(db.MemoryDay); !ok {
		t.Fatalf("expected MemoryDay at index 6, got %T", session.Day())
	}

	if _, err := NewEditSession(persister, nil, testCalendar(), 7); err == nil {
		t.Fatalf("expected error for day index out of range")
	}
}

func TestEditSessionTracksSessionContext(t *testing.T) {
	persister := newBlockingPersister()
	ctx := NewSessionContext()

	session, err := NewEditSession(persister, ctx, testCalendar(), 0, WithDebounce(time.Hour))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()

	if ctx.CurrentCalendarID != "cal-1" {
		t.Fatalf("session context not pointed at the edited calendar: %q", ctx.CurrentCalendarID)
	}

	if err := session.Update(db.DayPatch{"message": "draft text"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	draft, ok := ctx.LoadDraft("cal-1")
	if !ok {
		t.Fatalf("draft not cached")
	}
	if got := messageOf(t, *draft); got != "draft text" {
		t.Fatalf("cached draft stale: %q", got)
	}

	ctx.DropDraft("cal-1")
	if _, ok := ctx.LoadDraft("cal-1"); ok {
		t.Fatalf("draft survived drop")
	}
}
