package service

import (
	"context"
	"fmt"
	"student_forms/internal/model"
	"student_forms/internal/repository"
	"student_forms/internal/util"
	"student_forms/pkg/monitoring"
	"sync"
	"time"
)

type formSession struct {
	mu       sync.Mutex
	runtime  *FormRuntime
	lastSeen time.Time
}

// FormService keeps one FormRuntime per browser session. Operations on the
// same session are serialized; different sessions proceed independently.
type FormService struct {
	Sessions repository.SessionStore
	Fetcher  FormFetcher

	mu      sync.Mutex
	entries map[string]*formSession
	now     func() time.Time
}

func NewFormService(sessions repository.SessionStore, fetcher FormFetcher) *FormService {
	return &FormService{
		Sessions: sessions,
		Fetcher:  fetcher,
		entries:  make(map[string]*formSession),
		now:      time.Now,
	}
}

func (s *FormService) entry(sessionID string) *formSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		e = &formSession{runtime: s.newRuntime(sessionID)}
		s.entries[sessionID] = e
		monitoring.ActiveSessions.Set(float64(len(s.entries)))
	}
	e.lastSeen = s.now()
	return e
}

func (s *FormService) newRuntime(sessionID string) *FormRuntime {
	return NewFormRuntime(repository.Scope(s.Sessions, sessionID), s.Fetcher)
}

// with runs fn on the session's runtime, mounting it first if it has not
// been loaded yet. A runtime whose load failed reports ErrFormLoad on every
// call without running fn. Runtimes that end in StateRedirect are dropped so the
// next visit starts from scratch.
func (s *FormService) with(ctx context.Context, sessionID string, fn func(*FormRuntime) error) (FormView, error) {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	rt := e.runtime
	var err error
	switch rt.State() {
	case StateLoading:
		err = rt.Mount(ctx)
	case StateError:
		// A failed load stays failed until Retry.
		err = fmt.Errorf("%w: %v", util.ErrFormLoad, rt.loadErr)
	}
	if err == nil && fn != nil {
		err = fn(rt)
	}

	view := rt.View()
	if rt.State() == StateRedirect {
		s.drop(sessionID, e)
	}
	return view, err
}

func (s *FormService) drop(sessionID string, e *formSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[sessionID] == e {
		delete(s.entries, sessionID)
		monitoring.ActiveSessions.Set(float64(len(s.entries)))
	}
}

// Open returns the current view, loading the form on first access.
func (s *FormService) Open(ctx context.Context, sessionID string) (FormView, error) {
	return s.with(ctx, sessionID, nil)
}

func (s *FormService) SetField(ctx context.Context, sessionID, fieldID string, value model.FieldValue) (FormView, error) {
	return s.with(ctx, sessionID, func(rt *FormRuntime) error {
		return rt.SetField(fieldID, value)
	})
}

// ApplySection records the values posted by a section page. Values equal to
// what is already stored, or empty values for fields never touched, are not
// treated as edits so their errors stay visible.
func (s *FormService) ApplySection(ctx context.Context, sessionID string, values model.FormData) (FormView, error) {
	return s.with(ctx, sessionID, func(rt *FormRuntime) error {
		return applyValues(rt, values)
	})
}

func applyValues(rt *FormRuntime, values model.FormData) error {
	for id, v := range values {
		cur, ok := rt.Value(id)
		if ok && cur.Equal(v) {
			continue
		}
		if !ok && v.IsEmpty() {
			continue
		}
		if err := rt.SetField(id, v); err != nil {
			return err
		}
	}
	return nil
}

// Next validates the current section. The returned bool reports whether
// the section passed.
func (s *FormService) Next(ctx context.Context, sessionID string) (FormView, bool, error) {
	var valid bool
	view, err := s.with(ctx, sessionID, func(rt *FormRuntime) error {
		var err error
		valid, err = rt.Next(ctx)
		return err
	})
	return view, valid, err
}

// SubmitSection applies posted values then runs Next, as one step.
func (s *FormService) SubmitSection(ctx context.Context, sessionID string, values model.FormData) (FormView, bool, error) {
	var valid bool
	view, err := s.with(ctx, sessionID, func(rt *FormRuntime) error {
		if err := applyValues(rt, values); err != nil {
			return err
		}
		var err error
		valid, err = rt.Next(ctx)
		return err
	})
	return view, valid, err
}

func (s *FormService) Previous(ctx context.Context, sessionID string) (FormView, error) {
	return s.with(ctx, sessionID, func(rt *FormRuntime) error {
		return rt.Previous()
	})
}

// RetreatSection keeps the posted values and moves back one section.
func (s *FormService) RetreatSection(ctx context.Context, sessionID string, values model.FormData) (FormView, error) {
	return s.with(ctx, sessionID, func(rt *FormRuntime) error {
		if err := applyValues(rt, values); err != nil {
			return err
		}
		return rt.Previous()
	})
}

// Retry replaces a runtime whose load failed and loads the form again.
func (s *FormService) Retry(ctx context.Context, sessionID string) (FormView, error) {
	e := s.entry(sessionID)
	e.mu.Lock()
	if st := e.runtime.State(); st != StateError {
		view := e.runtime.View()
		e.mu.Unlock()
		return view, fmt.Errorf("%w: retry only follows a failed load, state is %s", util.ErrInvalidState, st)
	}
	e.runtime = s.newRuntime(sessionID)
	e.mu.Unlock()
	return s.Open(ctx, sessionID)
}

func (s *FormService) ReturnToLogin(ctx context.Context, sessionID string) (FormView, error) {
	return s.with(ctx, sessionID, func(rt *FormRuntime) error {
		return rt.ReturnToLogin(ctx)
	})
}

// Discard forgets the session's runtime, e.g. after a new login.
func (s *FormService) Discard(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	monitoring.ActiveSessions.Set(float64(len(s.entries)))
}

// Sweep drops runtimes idle for longer than idle and returns how many went.
func (s *FormService) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	n := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	monitoring.ActiveSessions.Set(float64(len(s.entries)))
	return n
}

// Len reports how many runtimes are held.
func (s *FormService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
