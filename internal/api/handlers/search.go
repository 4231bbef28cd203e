package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/consultbot/internal/api"
	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, in service.SearchInput) (*service.SearchResult, error)
}

// CorpusSource exposes the live knowledge store.
type CorpusSource interface {
	Current() *corpus.Store
}

type SearchHandler struct {
	svc    SearchService
	corpus CorpusSource
}

func NewSearchHandler(svc SearchService, src CorpusSource) *SearchHandler {
	return &SearchHandler{svc: svc, corpus: src}
}

type CorpusResponse struct {
	Items        int                       `json:"items"`
	ByProvenance map[domain.Provenance]int `json:"by_provenance"`
	LoadedAt     string                    `json:"loaded_at"`
}

// Search ranks the current corpus without generating an answer.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req service.SearchInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Search(r.Context(), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}

// Corpus reports the size of the live corpus.
func (h *SearchHandler) Corpus(w http.ResponseWriter, r *http.Request) {
	store := h.corpus.Current()
	resp := CorpusResponse{
		Items:        store.Len(),
		ByProvenance: store.CountByProvenance(),
	}
	if !store.LoadedAt().IsZero() {
		resp.LoadedAt = store.LoadedAt().Format(time.RFC3339)
	}
	api.Success(w, http.StatusOK, resp)
}

// FAQEntry is one question of an FAQ topic.
type FAQEntry struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQResponse holds one level of the FAQ browse tree: fields, the topics of
// a field, or the entries of a topic.
type FAQResponse struct {
	Field  string     `json:"field,omitempty"`
	Topic  string     `json:"topic,omitempty"`
	Fields []string   `json:"fields,omitempty"`
	Topics []string   `json:"topics,omitempty"`
	Items  []FAQEntry `json:"items,omitempty"`
}

// FAQ browses the FAQ collection by field and topic.
func (h *SearchHandler) FAQ(w http.ResponseWriter, r *http.Request) {
	store := h.corpus.Current()
	field := strings.TrimSpace(r.URL.Query().Get("field"))
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))

	switch {
	case field == "" && topic != "":
		api.Error(w, http.StatusBadRequest, "topic requires field")
	case field == "":
		api.Success(w, http.StatusOK, FAQResponse{Fields: store.FAQFields()})
	case topic == "":
		api.Success(w, http.StatusOK, FAQResponse{Field: field, Topics: store.FAQTopics(field)})
	default:
		list := store.FAQList(field, topic)
		entries := make([]FAQEntry, 0, len(list))
		for _, item := range list {
			entries = append(entries, FAQEntry{ID: item.ID, Question: item.Prompt, Answer: item.Body})
		}
		api.Success(w, http.StatusOK, FAQResponse{Field: field, Topic: topic, Items: entries})
	}
}
