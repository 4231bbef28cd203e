package domain

import (
	"fmt"
	"strings"
)

// Provenance identifies the source collection of a knowledge item
type Provenance string

const (
	ProvenanceQA            Provenance = "qa"
	ProvenanceFAQ           Provenance = "faq"
	ProvenanceKnowledgeBase Provenance = "knowledge-base"
)

// ParseProvenance accepts the canonical names plus "notion", the name the
// knowledge-base export carries.
func ParseProvenance(s string) (Provenance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qa", "q&a":
		return ProvenanceQA, nil
	case "faq":
		return ProvenanceFAQ, nil
	case "knowledge-base", "kb", "notion":
		return ProvenanceKnowledgeBase, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProvenance, s)
}

// Tags holds the descriptive metadata of a knowledge item
type Tags struct {
	DomainArea   string   `json:"domainArea,omitempty" yaml:"domainArea,omitempty"`
	Topic        string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	CategoryPath string   `json:"categoryPath,omitempty" yaml:"categoryPath,omitempty"`
	Specialties  []string `json:"specialties,omitempty" yaml:"specialties,omitempty"`
	Highlights   []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
	ExternalLink string   `json:"externalLink,omitempty" yaml:"externalLink,omitempty"`
}

// SubCategory returns the last segment of the category path.
func (t Tags) SubCategory() string {
	path := strings.Trim(t.CategoryPath, "/")
	if path == "" {
		return ""
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// KnowledgeItem is an atomic retrievable unit. Items are immutable once loaded.
type KnowledgeItem struct {
	ID         string     `json:"id" yaml:"id"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
	Prompt     string     `json:"prompt" yaml:"prompt"`
	Body       string     `json:"body" yaml:"body"`
	Tags       Tags       `json:"tags" yaml:"tags"`
}

// Retrievable reports whether the item may take part in retrieval.
func (k *KnowledgeItem) Retrievable() bool {
	return k != nil && strings.TrimSpace(k.Prompt) != ""
}

// ScoredItem references an item of a store by position; the item itself is
// never copied.
type ScoredItem struct {
	Ref   int            `json:"ref"`
	Item  *KnowledgeItem `json:"item"`
	Score float64        `json:"score"`
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge item ID is required")
	}

	if !k.Retrievable() {
		return fmt.Errorf("knowledge item Prompt is required")
	}

	if !isValidProvenance(k.Provenance) {
		return fmt.Errorf("knowledge item Provenance is invalid: %s", k.Provenance)
	}

	return nil
}

func isValidProvenance(p Provenance) bool {
	switch p {
	case ProvenanceQA, ProvenanceFAQ, ProvenanceKnowledgeBase:
		return true
	}
	return false
}
