package session

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"arxidemo/internal/domain"
	"arxidemo/internal/sched"
	"arxidemo/internal/store"
	"arxidemo/internal/tour"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
)

// Options configure one session.
type Options struct {
	Settings tour.Settings
	// Empty starts from an empty store instead of the demo fixture.
	Empty     bool
	Rand      *rand.Rand
	Scheduler sched.Scheduler
	Now       func() time.Time
	NewID     func() string
	Logger    *slog.Logger
	// OnComplete runs once, with the session lock held, when the tour
	// reaches its last step.
	OnComplete func(id string)
}

// Session owns one tour state and the timers its effects scheduled.
// Reductions and timer callbacks are serialized by mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	state  tour.State
	env    tour.Env
	sched  sched.Scheduler
	closed bool
	log    *slog.Logger
	done   func(id string)
}

func New(id string, opts Options) *Session {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Scheduler == nil {
		opts.Scheduler = sched.NewTimers()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	st := store.Seed()
	if opts.Empty {
		st = store.New()
	}
	return &Session{
		ID:        id,
		CreatedAt: opts.Now(),
		state:     tour.NewState(st),
		env: tour.Env{
			Rand:     opts.Rand,
			Now:      opts.Now,
			NewID:    opts.NewID,
			Settings: opts.Settings,
		},
		sched: opts.Scheduler,
		log:   opts.Logger.With("session", id),
		done:  opts.OnComplete,
	}
}

// Dispatch reduces cmd against the current state and schedules the
// resulting effects. It returns a copy of the resulting state and whether
// the command changed anything.
func (s *Session) Dispatch(cmd tour.Command) (tour.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return tour.State{}, false, ErrClosed
	}
	applied := s.apply(cmd)
	return s.state.Clone(), applied, nil
}

func (s *Session) apply(cmd tour.Command) bool {
	wasComplete := s.state.Complete
	res := tour.Reduce(s.state, cmd, s.env)
	if !res.Applied {
		if c, ok := cmd.(tour.Click); ok {
			s.log.Debug("action ignored", "action", c.Action.String(), "step", s.state.Step)
		}
		return false
	}
	s.state = res.State
	for _, e := range res.Effects {
		next := e.Command
		s.sched.After(e.After, func() { s.fire(next) })
	}
	if !wasComplete && s.state.Complete {
		s.log.Info("tour completed")
		if s.done != nil {
			s.done(s.ID)
		}
	}
	return true
}

func (s *Session) fire(cmd tour.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.apply(cmd)
}

// State returns a copy of the current state.
func (s *Session) State() tour.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) IsAllowed(a tour.ActionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAllowed(a)
}

// Report generates a report for one of the session's executions.
func (s *Session) Report(executionID string) (domain.TestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.TestReport{}, ErrClosed
	}
	return tour.Report(s.state.Store, executionID, s.env.Rand)
}

// Pending returns the number of scheduled effects not yet fired.
func (s *Session) Pending() int {
	return s.sched.Pending()
}

// Close cancels every outstanding timer. It reports false when the session
// was already closed.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	n := s.sched.CancelAll()
	s.log.Info("session closed", "cancelled_timers", n)
	return true
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
