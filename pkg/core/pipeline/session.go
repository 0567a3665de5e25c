package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned for a query that a newer Submit replaced.
var ErrSuperseded = errors.New("query superseded by a newer request")

// Session enforces last-query-wins: a new Submit cancels the query in
// flight, and a result that is no longer the latest is discarded.
type Session struct {
	orch *Orchestrator

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	state  State
}

func NewSession(o *Orchestrator) *Session {
	return &Session{orch: o, state: StateIdle}
}

// Submit resolves companyName. It returns ErrSuperseded when another Submit
// started before this one finished.
func (s *Session) Submit(ctx context.Context, companyName string) (Resolution, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	mine := s.seq
	s.cancel = cancel
	s.state = StateSearching
	s.mu.Unlock()

	res := s.orch.Resolve(ctx, companyName)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != mine {
		return Resolution{}, ErrSuperseded
	}
	s.cancel = nil
	s.state = StateIdle
	return res, nil
}

// State is Searching while a query is in flight, otherwise Idle.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sessions keeps one Session per client id so that a client's newer query
// only supersedes its own earlier one. An empty id gets a private Session
// and is never superseded. Entries are dropped once no query is in flight.
type Sessions struct {
	orch *Orchestrator

	mu   sync.Mutex
	byID map[string]*trackedSession
}

type trackedSession struct {
	*Session
	inflight int
}

func NewSessions(o *Orchestrator) *Sessions {
	return &Sessions{orch: o, byID: make(map[string]*trackedSession)}
}

// Submit resolves companyName in the Session owned by clientID.
func (s *Sessions) Submit(ctx context.Context, clientID, companyName string) (Resolution, error) {
	if clientID == "" {
		return NewSession(s.orch).Submit(ctx, companyName)
	}

	s.mu.Lock()
	t, ok := s.byID[clientID]
	if !ok {
		t = &trackedSession{Session: NewSession(s.orch)}
		s.byID[clientID] = t
	}
	t.inflight++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		t.inflight--
		if t.inflight == 0 {
			delete(s.byID, clientID)
		}
		s.mu.Unlock()
	}()
	return t.Submit(ctx, companyName)
}

// Len reports how many clients have a query in flight.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
