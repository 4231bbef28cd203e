package service

import (
	"sync"
	"time"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/memory"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// Session is one consultation conversation. Turns of a session are
// serialized; different sessions run independently.
type Session struct {
	ID        string
	CreatedAt time.Time

	turnMu    sync.Mutex
	mu        sync.RWMutex
	memory    *memory.Manager
	specialty *domain.UserSpecialty
	store     *corpus.Store
}

// Memory returns the session's conversation memory.
func (s *Session) Memory() *memory.Manager {
	return s.memory
}

// Specialty returns a copy of the selected specialty, or nil.
func (s *Session) Specialty() *domain.UserSpecialty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.specialty == nil {
		return nil
	}
	sp := *s.specialty
	return &sp
}

// Store returns the corpus snapshot the session retrieves from.
func (s *Session) Store() *corpus.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *Session) setSpecialty(sp *domain.UserSpecialty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specialty = sp
}

func (s *Session) rebind(store *corpus.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

// SessionView is the externally visible state of a session
type SessionView struct {
	ID          string                    `json:"id"`
	CreatedAt   time.Time                 `json:"createdAt"`
	MemoryState memory.State              `json:"memoryState"`
	Turns       []domain.ConversationTurn `json:"turns"`
	Summary     string                    `json:"summary"`
	Specialty   *domain.UserSpecialty     `json:"specialty,omitempty"`
	CorpusItems int                       `json:"corpusItems"`
}

// View returns a consistent copy of the session state.
func (s *Session) View() *SessionView {
	snap := s.memory.Snapshot()
	turns := snap.Turns
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	return &SessionView{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		MemoryState: snap.State,
		Turns:       turns,
		Summary:     snap.Summary,
		Specialty:   s.Specialty(),
		CorpusItems: s.Store().Len(),
	}
}

// MemoryFactory builds the memory of a new session.
type MemoryFactory func() *memory.Manager

// SessionStore keeps the most recently used sessions. The least recently
// used session is dropped when capacity is reached.
type SessionStore struct {
	cache     *lru.Cache
	registry  *corpus.Registry
	newMemory MemoryFactory
	uuidGen   UUIDGenerator
	logger    *zap.Logger
}

// NewSessionStore creates a SessionStore holding at most capacity sessions.
func NewSessionStore(capacity int, registry *corpus.Registry, newMemory MemoryFactory, logger *zap.Logger) (*SessionStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = corpus.NewRegistry(nil)
	}
	if newMemory == nil {
		newMemory = func() *memory.Manager { return memory.NewManager(nil, memory.DefaultCap, logger) }
	}

	cache, err := lru.NewWithEvict(capacity, func(key, _ interface{}) {
		logger.Debug("session evicted", zap.Any("session_id", key))
	})
	if err != nil {
		return nil, err
	}

	return &SessionStore{
		cache:     cache,
		registry:  registry,
		newMemory: newMemory,
		uuidGen:   &DefaultUUIDGenerator{},
		logger:    logger,
	}, nil
}

// Create starts a new session bound to the current corpus snapshot.
func (s *SessionStore) Create() *Session {
	sess := &Session{
		ID:        s.uuidGen.NewString(),
		CreatedAt: time.Now().UTC(),
		memory:    s.newMemory(),
		store:     s.registry.Current(),
	}
	s.cache.Add(sess.ID, sess)
	return sess
}

// Get returns the session with id.
func (s *SessionStore) Get(id string) (*Session, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return v.(*Session), nil
}

// Delete removes a session. It reports whether the session existed.
func (s *SessionStore) Delete(id string) bool {
	return s.cache.Remove(id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.cache.Len()
}

// Rebind points the session at the registry's current snapshot.
func (s *SessionStore) Rebind(sess *Session) {
	sess.rebind(s.registry.Current())
}
