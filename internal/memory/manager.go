package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"go.uber.org/zap"
)

// State is the compaction state of a conversation buffer
type State int

const (
	// StateEmpty: no turns and no summary.
	StateEmpty State = iota
	// StateAccumulating: the buffer holds at most cap turns.
	StateAccumulating
	// StateSummarizing: the buffer is over cap and compaction is owed. A
	// manager stays here after a failed compaction until a later one succeeds.
	StateSummarizing
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateSummarizing:
		return "summarizing"
	}
	return "unknown"
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty":
		*s = StateEmpty
	case "accumulating":
		*s = StateAccumulating
	case "summarizing":
		*s = StateSummarizing
	default:
		return fmt.Errorf("unknown memory state %q", text)
	}
	return nil
}

const (
	// DefaultCap is the number of turns kept verbatim.
	DefaultCap = 3
	// MaxAssistantRunes bounds the stored assistant text of a turn.
	MaxAssistantRunes = 500
)

// Summarizer folds the oldest buffered turn into the running summary.
type Summarizer interface {
	Summarize(ctx context.Context, priorSummary string, oldest domain.ConversationTurn) (string, error)
}

var errEmptySummary = errors.New("summarizer returned an empty summary")

// Snapshot is a read-only copy of a manager's contents.
type Snapshot struct {
	State   State                     `json:"state"`
	Turns   []domain.ConversationTurn `json:"turns"`
	Summary string                    `json:"summary"`
}

// Manager holds the rolling buffer of recent turns and the summary of every
// turn evicted from it.
type Manager struct {
	mu         sync.Mutex
	cap        int
	turns      []domain.ConversationTurn
	summary    string
	state      State
	summarizer Summarizer
	logger     *zap.Logger

	// compacting is set while a compaction runs with the lock released.
	compacting bool
	// gen changes on every Reset.
	gen uint64
}

// NewManager creates an empty Manager. A cap below 1 means DefaultCap.
func NewManager(summarizer Summarizer, capacity int, logger *zap.Logger) *Manager {
	if capacity < 1 {
		capacity = DefaultCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cap:        capacity,
		summarizer: summarizer,
		logger:     logger,
		state:      StateEmpty,
	}
}

// Cap returns the number of turns kept verbatim.
func (m *Manager) Cap() int {
	return m.cap
}

// Append stores a completed turn and compacts the buffer if it is over cap.
// The turn is kept even when compaction fails; the error is a
// SummarizationFailure and compaction is retried on the next Append.
//
// The lock is released while the summarizer runs, so readers see the
// summarizing state instead of waiting on the summarizer.
func (m *Manager) Append(ctx context.Context, turn domain.ConversationTurn) error {
	m.mu.Lock()
	turn.AssistantText = truncateRunes(turn.AssistantText, MaxAssistantRunes)
	m.turns = append(m.turns, turn)
	m.state = StateAccumulating
	m.mu.Unlock()

	return m.Compact(ctx)
}

// Compact summarizes the oldest turns until the buffer is back at cap. A
// call made while another compaction is running returns at once; the running
// one picks up the extra turns.
func (m *Manager) Compact(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.compacting {
		return nil
	}
	m.compacting = true
	defer func() { m.compacting = false }()

	gen := m.gen
	folded := 0
	for len(m.turns) > m.cap {
		m.state = StateSummarizing
		oldest, prior := m.turns[0], m.summary

		m.mu.Unlock()
		summary, err := m.summarize(ctx, prior, oldest)
		m.mu.Lock()

		if m.gen != gen {
			// Reset ran meanwhile; the summary belongs to the discarded history.
			gen = m.gen
			continue
		}
		if err != nil {
			m.logger.Warn("conversation compaction aborted",
				zap.Int("buffered_turns", len(m.turns)),
				zap.Int("cap", m.cap),
				zap.Error(err),
			)
			return domain.Wrap(domain.ErrSummarizationFailure, err)
		}

		m.summary = summary
		m.turns = append(m.turns[:0:0], m.turns[1:]...)
		folded++
	}

	m.settleLocked()
	if folded > 0 {
		m.logger.Debug("conversation compacted",
			zap.Int("folded_turns", folded),
			zap.Int("buffered_turns", len(m.turns)),
			zap.Int("summary_runes", utf8.RuneCountInString(m.summary)),
		)
	}
	return nil
}

func (m *Manager) summarize(ctx context.Context, prior string, oldest domain.ConversationTurn) (string, error) {
	if m.summarizer == nil {
		return "", errors.New("no summarizer configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	summary, err := m.summarizer.Summarize(ctx, prior, oldest)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", errEmptySummary
	}
	return strings.TrimSpace(summary), nil
}

func (m *Manager) settleLocked() {
	if len(m.turns) == 0 && m.summary == "" {
		m.state = StateEmpty
		return
	}
	m.state = StateAccumulating
}

// Reset clears the buffer and the summary.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = nil
	m.summary = ""
	m.state = StateEmpty
	m.gen++
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Turns returns a copy of the buffered turns, oldest first.
func (m *Manager) Turns() []domain.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ConversationTurn(nil), m.turns...)
}

// Summary returns the running summary.
func (m *Manager) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Snapshot returns a copy of state, turns and summary taken under one lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:   m.state,
		Turns:   append([]domain.ConversationTurn(nil), m.turns...),
		Summary: m.summary,
	}
}

// ContextPrompt renders the summary followed by the buffered turns in
// chronological order. It is empty for a new conversation.
func (m *Manager) ContextPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var parts []string
	if m.summary != "" {
		parts = append(parts, "이전 대화 요약:\n"+m.summary)
	}
	for _, t := range m.turns {
		parts = append(parts, FormatTurn(t))
	}
	return strings.Join(parts, "\n\n")
}

// FormatTurn renders one turn the way it appears in context prompts.
func FormatTurn(t domain.ConversationTurn) string {
	return "사용자: " + t.UserText + "\n어시스턴트: " + t.AssistantText
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
