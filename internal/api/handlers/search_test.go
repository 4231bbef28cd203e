package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, in service.SearchInput) (*service.SearchResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchResult), args.Error(1)
}

func testRegistry() *corpus.Registry {
	store, _ := corpus.NewStore([]domain.KnowledgeItem{
		{ID: "q1", Provenance: domain.ProvenanceQA, Prompt: "개원 절차"},
		{ID: "f1", Provenance: domain.ProvenanceFAQ, Prompt: "간판 비용"},
		{ID: "f2", Provenance: domain.ProvenanceFAQ, Prompt: "인테리어 기간"},
	})
	return corpus.NewRegistry(store)
}

func TestSearchHandler_Search(t *testing.T) {
	mockSvc := new(MockSearchService)
	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(in service.SearchInput) bool {
		return in.Query == "간판" && in.Mode == service.SearchModeKeyword && in.Limit == 3 && in.SpecialtyCode == "dental"
	})).Return(&service.SearchResult{
		Mode:  service.SearchModeKeyword,
		Items: []service.Reference{{Number: 1, ID: "f1"}},
	}, nil)
	handler := NewSearchHandler(mockSvc, testRegistry())

	body := `{"query":"간판","mode":"keyword","limit":3,"specialty":"dental"}`
	w := httptest.NewRecorder()
	handler.Search(w, httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	var res service.SearchResult
	decodeData(t, w, &res)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "f1", res.Items[0].ID)
}

func TestSearchHandler_Search_Errors(t *testing.T) {
	mockSvc := new(MockSearchService)
	mockSvc.On("Search", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidSearchMode)
	handler := NewSearchHandler(mockSvc, testRegistry())

	w := httptest.NewRecorder()
	handler.Search(w, httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	handler.Search(w, httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`{"query":"x","mode":"vector"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid search mode", decodeError(t, w).Message)
}

func TestSearchHandler_Corpus(t *testing.T) {
	handler := NewSearchHandler(new(MockSearchService), testRegistry())

	w := httptest.NewRecorder()
	handler.Corpus(w, httptest.NewRequest(http.MethodGet, "/v1/corpus", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp CorpusResponse
	decodeData(t, w, &resp)
	assert.Equal(t, 3, resp.Items)
	assert.Equal(t, 2, resp.ByProvenance[domain.ProvenanceFAQ])
	assert.Equal(t, 1, resp.ByProvenance[domain.ProvenanceQA])
	assert.NotEmpty(t, resp.LoadedAt)
}

func TestSearchHandler_FAQ(t *testing.T) {
	store, _ := corpus.NewStore([]domain.KnowledgeItem{
		{ID: "f1", Provenance: domain.ProvenanceFAQ, Prompt: "간판 비용", Body: "크기별 상이",
			Tags: domain.Tags{DomainArea: "파트너사", Topic: "간판"}},
		{ID: "f2", Provenance: domain.ProvenanceFAQ, Prompt: "인테리어 기간", Body: "6주 내외",
			Tags: domain.Tags{DomainArea: "파트너사", Topic: "인테리어"}},
		{ID: "f3", Provenance: domain.ProvenanceFAQ, Prompt: "사업자 등록", Body: "개설신고 이후",
			Tags: domain.Tags{DomainArea: "개원 준비", Topic: "세무"}},
		{ID: "q1", Provenance: domain.ProvenanceQA, Prompt: "개원 절차",
			Tags: domain.Tags{DomainArea: "행정", Topic: "일반"}},
	})
	handler := NewSearchHandler(new(MockSearchService), corpus.NewRegistry(store))

	tests := []struct {
		name   string
		query  string
		status int
		want   FAQResponse
	}{
		{"fields", "", http.StatusOK, FAQResponse{Fields: []string{"개원 준비", "파트너사"}}},
		{"topics", "?field=파트너사", http.StatusOK, FAQResponse{Field: "파트너사", Topics: []string{"간판", "인테리어"}}},
		{"items", "?field=파트너사&topic=간판", http.StatusOK, FAQResponse{
			Field: "파트너사", Topic: "간판",
			Items: []FAQEntry{{ID: "f1", Question: "간판 비용", Answer: "크기별 상이"}},
		}},
		{"unknown field", "?field=행정", http.StatusOK, FAQResponse{Field: "행정"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.FAQ(w, httptest.NewRequest(http.MethodGet, "/v1/faq"+encodeQuery(tt.query), nil))

			assert.Equal(t, tt.status, w.Code)
			var got FAQResponse
			decodeData(t, w, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchHandler_FAQ_TopicWithoutField(t *testing.T) {
	handler := NewSearchHandler(new(MockSearchService), testRegistry())

	w := httptest.NewRecorder()
	handler.FAQ(w, httptest.NewRequest(http.MethodGet, "/v1/faq?topic=x", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "topic requires field", decodeError(t, w).Message)
}

func encodeQuery(q string) string {
	if q == "" {
		return ""
	}
	values, err := url.ParseQuery(strings.TrimPrefix(q, "?"))
	if err != nil {
		panic(err)
	}
	return "?" + values.Encode()
}
