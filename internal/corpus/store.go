// Package corpus holds the immutable in-memory knowledge store and the
// loaders that feed it.
package corpus

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// LoadReport summarises what NewStore accepted and rejected
type LoadReport struct {
	Accepted         int
	SkippedEmpty     int
	SkippedDuplicate int
	SkippedInvalid   int
	AcceptedByOrigin map[domain.Provenance]int
}

// Store is a read-only arena of knowledge items. Items are addressed by
// position and handed out as pointers into the arena.
type Store struct {
	items    []domain.KnowledgeItem
	byID     map[string]int
	faq      map[string]map[string][]int
	loadedAt time.Time
}

// NewStore builds a store from items. Items without a prompt are excluded;
// for duplicate IDs the first occurrence wins.
func NewStore(items []domain.KnowledgeItem) (*Store, LoadReport) {
	report := LoadReport{AcceptedByOrigin: make(map[domain.Provenance]int)}
	s := &Store{
		items:    make([]domain.KnowledgeItem, 0, len(items)),
		byID:     make(map[string]int, len(items)),
		faq:      make(map[string]map[string][]int),
		loadedAt: time.Now().UTC(),
	}

	for _, item := range items {
		if !item.Retrievable() {
			report.SkippedEmpty++
			continue
		}
		if item.Provenance == "" {
			item.Provenance = domain.ProvenanceKnowledgeBase
		}
		if err := domain.ValidateKnowledgeItem(&item); err != nil {
			report.SkippedInvalid++
			continue
		}
		if _, dup := s.byID[item.ID]; dup {
			report.SkippedDuplicate++
			continue
		}
		item.Prompt = strings.TrimSpace(item.Prompt)
		s.byID[item.ID] = len(s.items)
		if item.Provenance == domain.ProvenanceFAQ {
			s.indexFAQ(&item, len(s.items))
		}
		s.items = append(s.items, item)
		report.AcceptedByOrigin[item.Provenance]++
	}

	report.Accepted = len(s.items)
	return s, report
}

// Len returns the number of items. A nil store is empty.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Empty reports whether the store holds no items.
func (s *Store) Empty() bool {
	return s.Len() == 0
}

// At returns the item at position i.
func (s *Store) At(i int) *domain.KnowledgeItem {
	return &s.items[i]
}

// Get looks an item up by ID.
func (s *Store) Get(id string) (*domain.KnowledgeItem, error) {
	if s == nil {
		return nil, domain.ErrKnowledgeNotFound
	}
	i, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrKnowledgeNotFound
	}
	return &s.items[i], nil
}

// faqHeaderMarker marks sheet header rows that leaked into the field column.
const faqHeaderMarker = "주제"

func (s *Store) indexFAQ(item *domain.KnowledgeItem, pos int) {
	field := strings.TrimSpace(item.Tags.DomainArea)
	if field == "" {
		field = "기타"
	}
	if strings.Contains(field, faqHeaderMarker) {
		return
	}
	topic := strings.TrimSpace(item.Tags.Topic)
	if topic == "" {
		topic = "일반"
	}
	topics, ok := s.faq[field]
	if !ok {
		topics = make(map[string][]int)
		s.faq[field] = topics
	}
	topics[topic] = append(topics[topic], pos)
}

// FAQFields returns the FAQ fields in Korean collation order.
func (s *Store) FAQFields() []string {
	if s == nil {
		return []string{}
	}
	fields := make([]string, 0, len(s.faq))
	for f := range s.faq {
		fields = append(fields, f)
	}
	return sortKorean(fields)
}

// FAQTopics returns the topics under field in Korean collation order. An
// unknown field has no topics.
func (s *Store) FAQTopics(field string) []string {
	if s == nil {
		return []string{}
	}
	topics := make([]string, 0, len(s.faq[field]))
	for t := range s.faq[field] {
		topics = append(topics, t)
	}
	return sortKorean(topics)
}

// FAQList returns the FAQ items filed under field and topic in store order.
func (s *Store) FAQList(field, topic string) []*domain.KnowledgeItem {
	if s == nil {
		return []*domain.KnowledgeItem{}
	}
	positions := s.faq[field][topic]
	list := make([]*domain.KnowledgeItem, 0, len(positions))
	for _, i := range positions {
		list = append(list, &s.items[i])
	}
	return list
}

func sortKorean(values []string) []string {
	collate.New(language.Korean).SortStrings(values)
	return values
}

// CountByProvenance returns the number of items per source collection.
func (s *Store) CountByProvenance() map[domain.Provenance]int {
	counts := make(map[domain.Provenance]int)
	if s == nil {
		return counts
	}
	for i := range s.items {
		counts[s.items[i].Provenance]++
	}
	return counts
}

// LoadedAt returns when the store was built.
func (s *Store) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Registry publishes the current store. Swapping the store never affects
// holders of a previous snapshot.
type Registry struct {
	current atomic.Pointer[Store]
}

// NewRegistry creates a registry holding store.
func NewRegistry(store *Store) *Registry {
	r := &Registry{}
	if store == nil {
		store, _ = NewStore(nil)
	}
	r.current.Store(store)
	return r
}

// Current returns the store new sessions should use.
func (r *Registry) Current() *Store {
	return r.current.Load()
}

// Swap replaces the current store and returns the previous one.
func (r *Registry) Swap(store *Store) *Store {
	return r.current.Swap(store)
}
