package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

// Default registry settings.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultMaxSessions   = 1000
)

// ErrRegistryFull is returned by Create when MaxSessions live sessions exist.
var ErrRegistryFull = errors.New("session registry is full")

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

func (c *RegistryConfig) applyDefaults() {
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultIdleTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
}

// Registry owns the live sessions, keyed by uuid, and evicts idle ones.
type Registry struct {
	config  RegistryConfig
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry. metrics may be nil.
func NewRegistry(cfg RegistryConfig, metrics *observability.Metrics, logger zerolog.Logger) *Registry {
	cfg.applyDefaults()
	return &Registry{
		config:   cfg,
		metrics:  metrics,
		logger:   logger.With().Str("component", "session_registry").Logger(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new empty session.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.config.MaxSessions {
		r.evictLocked()
		if len(r.sessions) >= r.config.MaxSessions {
			return nil, ErrRegistryFull
		}
	}

	s := New(uuid.New().String())
	r.sessions[s.id] = s
	r.metrics.SetActiveSessions(len(r.sessions))
	return s, nil
}

// Get returns the session and marks it used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("session", id)
	}
	s.touch()
	return s, nil
}

// Delete removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.NewNotFoundError("session", id)
	}
	delete(r.sessions, id)
	r.metrics.SetActiveSessions(len(r.sessions))
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictLocked()
}

// Run sweeps on SweepInterval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info().Int("evicted", n).Msg("evicted idle sessions")
			}
		}
	}
}

func (r *Registry) evictLocked() int {
	cutoff := r.now().Add(-r.config.IdleTTL)
	evicted := 0
	for id, s := range r.sessions {
		if s.LastAccess().Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.metrics.SetActiveSessions(len(r.sessions))
	}
	return evicted
}
