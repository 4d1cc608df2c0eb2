package session

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/canteen_pos/internal/app/metrics"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	return cloneSession(sess), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	sess = cloneSession(sess)
	if err := fn(&sess); err != nil {
		return Session{}, err
	}
	m.sessions[id] = cloneSession(sess)
	return sess, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) liveLocked(id string) (Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, apperrors.Unauthorized("session not found")
	}
	if sess.Expired(m.now()) {
		delete(m.sessions, id)
		return Session{}, apperrors.Unauthorized("session expired")
	}
	return sess, nil
}

// Sweep drops expired sessions and returns how many remain.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, id)
		}
	}
	return len(m.sessions)
}

func cloneSession(s Session) Session {
	s.Cart.Entries = append(s.Cart.Entries[:0:0], s.Cart.Entries...)
	return s
}

// Sweeper runs MemoryStore.Sweep on a cron schedule.
type Sweeper struct {
	store    *MemoryStore
	schedule string
	cron     *cron.Cron
	log      *logger.Logger
}

// NewSweeper builds a sweeper. schedule uses cron syntax with the "@every"
// descriptors accepted too.
func NewSweeper(store *MemoryStore, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("session-sweeper")
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Sweeper{store: store, schedule: schedule, log: log}
}

func (s *Sweeper) Name() string { return "session-sweeper" }

func (s *Sweeper) Start(context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.run); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.Infof("session sweeper scheduled %s", s.schedule)
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Sweeper) run() {
	remaining := s.store.Sweep()
	metrics.SetActiveSessions(remaining)
	s.log.Debugf("session sweep done, %d active", remaining)
}
