package session

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"arxidemo/internal/sched"
	"arxidemo/internal/tour"
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	MaxSessions int
	Settings    tour.Settings
	Empty       bool
	// Seed fixes the source every session's random generator is drawn
	// from. Zero seeds from the clock.
	Seed         int64
	NewScheduler func() sched.Scheduler
	Logger       *slog.Logger
	OnCreate     func(id string)
	OnComplete   func(id string)
	OnClose      func(id string)
}

// lockedRand hands out per-session seeds from one shared source.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRand) Int63() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int63()
}

// Registry holds live sessions. When full, the least recently used session
// is evicted and closed.
type Registry struct {
	cfg   RegistryConfig
	cache *lru.Cache[string, *Session]
	seeds *lockedRand
	log   *slog.Logger
}

func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.MaxSessions < 1 {
		return nil, fmt.Errorf("max sessions must be at least 1, got %d", cfg.MaxSessions)
	}
	if cfg.NewScheduler == nil {
		cfg.NewScheduler = func() sched.Scheduler { return sched.NewTimers() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := &Registry{
		cfg:   cfg,
		seeds: &lockedRand{rng: rand.New(rand.NewSource(seed))},
		log:   cfg.Logger,
	}
	cache, err := lru.NewWithEvict(cfg.MaxSessions, func(id string, s *Session) {
		r.close(s)
	})
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Create starts a new session under a fresh id.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	s := New(id, Options{
		Settings:   r.cfg.Settings,
		Empty:      r.cfg.Empty,
		Rand:       rand.New(rand.NewSource(r.seeds.Int63())),
		Scheduler:  r.cfg.NewScheduler(),
		Logger:     r.log,
		OnComplete: r.cfg.OnComplete,
	})
	if evicted := r.cache.Add(id, s); evicted {
		r.log.Info("session evicted", "max_sessions", r.cfg.MaxSessions)
	}
	r.log.Info("session created", "session", id)
	if r.cfg.OnCreate != nil {
		r.cfg.OnCreate(id)
	}
	return s
}

func (r *Registry) close(s *Session) {
	if s.Close() && r.cfg.OnClose != nil {
		r.cfg.OnClose(s.ID)
	}
}

func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	s, ok := r.cache.Peek(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	r.cache.Remove(id)
	r.close(s)
	return nil
}

func (r *Registry) Len() int { return r.cache.Len() }

// Close tears down every live session.
func (r *Registry) Close() {
	for _, s := range r.cache.Values() {
		r.close(s)
	}
	r.cache.Purge()
}
