package api

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gowvp/vigil/internal/core/timeline"
)

func newTestManager(idle time.Duration, maxSessions int) *SessionManager {
	return &SessionManager{
		loc:         time.UTC,
		width:       1200,
		idleTimeout: idle,
		maxSessions: maxSessions,
	}
}

var testDate = timeline.MustParseDate("2024-01-21")

func TestSessionManagerLimit(t *testing.T) {
	m := newTestManager(time.Minute, 2)
	for range 2 {
		if _, err := m.Create(testDate, 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.Create(testDate, 0); err == nil {
		t.Fatal("expect limit error")
	}
	if m.Len() != 2 {
		t.Fatalf("len %d", m.Len())
	}
	m.CloseAll()
	if m.Len() != 0 {
		t.Fatalf("len after close %d", m.Len())
	}
}

func TestSessionManagerLimitConcurrent(t *testing.T) {
	const limit = 3
	m := newTestManager(time.Minute, limit)
	defer m.CloseAll()

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Create(testDate, 0); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != limit || m.Len() != limit {
		t.Fatalf("created %d len %d, expect %d", ok.Load(), m.Len(), limit)
	}
	if m.count.Load() != limit {
		t.Fatalf("count %d", m.count.Load())
	}
}

func TestSessionReap(t *testing.T) {
	m := newTestManager(time.Minute, 0)
	idle, _ := m.Create(testDate, 0)
	watched, _ := m.Create(testDate, 0)
	_, unsubscribe, err := watched.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	defer unsubscribe()

	if n := m.Reap(time.Now()); n != 0 {
		t.Fatalf("reaped fresh sessions %d", n)
	}
	if n := m.Reap(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("expect 1 reaped, got %d", n)
	}
	if _, err := m.Get(idle.ID); err == nil {
		t.Fatal("idle session still present")
	}
	if _, err := m.Get(watched.ID); err != nil {
		t.Fatal("subscribed session reaped")
	}
	if _, err := idle.Do(func(*timeline.Timeline) error { return nil }); err == nil {
		t.Fatal("closed session accepted work")
	}
}

func TestSessionSubscribe(t *testing.T) {
	m := newTestManager(time.Minute, 0)
	s, _ := m.Create(testDate, 0)

	events, unsubscribe, err := s.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	if e := <-events; e.Type != EventSnapshot || e.View == nil {
		t.Fatalf("first event %+v", e)
	}

	if _, err := s.Do(func(tl *timeline.Timeline) error {
		tl.PickDate(timeline.MustParseDate("2024-01-22"))
		tl.Click(600)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if e := <-events; e.Type != EventDateChange || e.Date != "2024-01-22" {
		t.Fatalf("date event %+v", e)
	}
	if e := <-events; e.Type != EventTimeChange || e.Time == "" {
		t.Fatalf("time event %+v", e)
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-events; ok {
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestSessionCloseEndsSubscribers(t *testing.T) {
	m := newTestManager(time.Minute, 0)
	s, _ := m.Create(testDate, 0)
	events, unsubscribe, _ := s.Subscribe()
	<-events

	if err := m.Delete(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-events; ok {
		t.Fatal("channel open after delete")
	}
	unsubscribe()
	if err := m.Delete(s.ID); err == nil {
		t.Fatal("expect not found on second delete")
	}
}

func TestSessionPlayerStopsOnPause(t *testing.T) {
	m := newTestManager(time.Minute, 0)
	s, _ := m.Create(testDate, 0)

	view, err := s.Do(func(tl *timeline.Timeline) error {
		tl.TogglePlay()
		return nil
	})
	if err != nil || view.State != "playing" {
		t.Fatalf("state %s err %v", view.State, err)
	}
	s.mu.Lock()
	running := s.stopPlay != nil
	s.mu.Unlock()
	if !running {
		t.Fatal("player not started")
	}

	view, _ = s.Do(func(tl *timeline.Timeline) error {
		tl.ZoomIn()
		return nil
	})
	if view.State != "idle" {
		t.Fatalf("zoom should stop playback, state %s", view.State)
	}
	s.mu.Lock()
	running = s.stopPlay != nil
	s.mu.Unlock()
	if running {
		t.Fatal("player still running")
	}
}

func TestApplyAction(t *testing.T) {
	start := time.Date(2024, 1, 21, 2, 15, 0, 0, time.UTC)
	incidents := []timeline.Incident{{
		ID:       9,
		Camera:   timeline.Camera{ID: 2, Name: "Vault Camera"},
		Category: "Gun Threat",
		Start:    start,
		End:      start.Add(5 * time.Minute),
		Severity: timeline.SeverityCritical,
	}}
	tl := timeline.New(testDate, timeline.WithLocation(time.UTC), timeline.WithWidth(1200))

	if err := applyAction(tl, &actionInput{Action: ActionRefresh}, incidents); err != nil {
		t.Fatal(err)
	}
	if len(tl.Incidents()) != 1 {
		t.Fatal("refresh did not load incidents")
	}

	if err := applyAction(tl, &actionInput{Action: ActionSetSpeed, Speed: 3.9}, nil); err != nil || tl.Speed() != 4 {
		t.Fatalf("speed %v err %v", tl.Speed(), err)
	}

	b := tl.Blocks()[0]
	in := &actionInput{Action: ActionClick, X: b.X + 1, Y: b.Y + 1, HitTest: true}
	if err := applyAction(tl, in, nil); err != nil {
		t.Fatal(err)
	}
	if sel, ok := tl.Selected(); !ok || sel.ID != 9 {
		t.Fatal("hit test click did not select")
	}

	if err := applyAction(tl, &actionInput{Action: ActionClearSelection}, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := tl.Selected(); ok {
		t.Fatal("selection not cleared")
	}

	if err := applyAction(tl, &actionInput{Action: ActionPickDate, Date: "21/01/2024"}, nil); err == nil {
		t.Fatal("expect bad date error")
	}
	if err := applyAction(tl, &actionInput{Action: ActionClickIncident, IncidentID: 1}, nil); err == nil {
		t.Fatal("expect not found")
	}
	if err := applyAction(tl, &actionInput{Action: "rewind"}, nil); err == nil {
		t.Fatal("expect unknown action error")
	}

	if err := applyAction(tl, &actionInput{Action: ActionDragStart}, nil); err != nil || !tl.Dragging() {
		t.Fatal("drag not started")
	}
	_ = applyAction(tl, &actionInput{Action: ActionDragMove, X: 0}, nil)
	_ = applyAction(tl, &actionInput{Action: ActionDragEnd}, nil)
	if tl.Dragging() || !tl.Cursor().Equal(tl.Viewport().Start()) {
		t.Fatalf("drag end cursor %s", tl.Cursor())
	}
}
