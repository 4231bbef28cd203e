package client

import "time"

// Specialty mirrors a selectable medical specialty.
type Specialty struct {
	Code     string   `json:"code"`
	Label    string   `json:"label"`
	Keywords []string `json:"keywords,omitempty"`
}

// Reference is a cited knowledge item of an answer or a search hit.
type Reference struct {
	Number       int     `json:"number"`
	ID           string  `json:"id"`
	Provenance   string  `json:"provenance"`
	Prompt       string  `json:"prompt"`
	Preview      string  `json:"preview"`
	CategoryPath string  `json:"categoryPath,omitempty"`
	Link         string  `json:"link,omitempty"`
	Score        float64 `json:"score"`
}

// Plan is the query plan a turn or search ran with.
type Plan struct {
	Intent         string   `json:"intent"`
	Topic          string   `json:"topic"`
	TargetCategory string   `json:"targetCategory"`
	CoreKeywords   []string `json:"coreKeywords"`
	SearchStrategy string   `json:"searchStrategy"`
}

// Turn is the answer to one question.
type Turn struct {
	SessionID    string      `json:"sessionId"`
	Kind         string      `json:"kind"`
	Text         string      `json:"text"`
	References   []Reference `json:"references"`
	Plan         Plan        `json:"plan"`
	PlanFallback bool        `json:"planFallback"`
	Unmapped     []int       `json:"unmapped,omitempty"`
	Model        string      `json:"model,omitempty"`
	MemoryState  string      `json:"memoryState"`
}

// Session is the state of a conversation.
type Session struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"createdAt"`
	MemoryState string     `json:"memoryState"`
	Summary     string     `json:"summary"`
	Specialty   *Specialty `json:"specialty,omitempty"`
	CorpusItems int        `json:"corpusItems"`
}

type createSessionRequest struct {
	Specialty string `json:"specialty,omitempty"`
}

type createSessionResponse struct {
	SessionID string     `json:"session_id"`
	CreatedAt string     `json:"created_at"`
	Specialty *Specialty `json:"specialty,omitempty"`
}

type askRequest struct {
	Query string `json:"query"`
}

type specialtyRequest struct {
	Code string `json:"code"`
}

type specialtyResponse struct {
	Specialty *Specialty `json:"specialty"`
}

type searchRequest struct {
	Query     string `json:"query"`
	Specialty string `json:"specialty,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// SearchResult is a ranked retrieval without generation.
type SearchResult struct {
	Mode         string      `json:"mode"`
	Plan         *Plan       `json:"plan,omitempty"`
	PlanFallback bool        `json:"planFallback"`
	Items        []Reference `json:"items"`
}

// FAQEntry is one question of an FAQ topic.
type FAQEntry struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQPage is one level of the FAQ browse tree.
type FAQPage struct {
	Field  string     `json:"field,omitempty"`
	Topic  string     `json:"topic,omitempty"`
	Fields []string   `json:"fields,omitempty"`
	Topics []string   `json:"topics,omitempty"`
	Items  []FAQEntry `json:"items,omitempty"`
}
