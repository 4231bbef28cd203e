package corpus

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signageCategoryJSON = `{
  "items": [
    {
      "id": "notion-signage-1",
      "source": "notion",
      "question": "디자인캐프",
      "answer": "간판 및 옥외광고물 전문 업체. 10년 경력.",
      "metadata": {"specialties": ["피부과"], "features": ["야간 시인성"], "website": "https://example.com"}
    },
    {
      "question": "간판 허가 절차",
      "answer": "구청 신고가 필요합니다."
    }
  ]
}`

const snapshotYAML = `
items:
  - id: qa-7
    provenance: qa
    prompt: 밤에도 간판이 잘 보였으면 좋겠어요
    body: 광도 조절 센서를 부착할 수 있습니다.
    tags:
      domainArea: 간판
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"notion/partners/signage.json": {Data: []byte(signageCategoryJSON)},
		"notion/index.json":            {Data: []byte(`{"categories": {"partners/signage": {}}}`)},
		"snapshots/qa.yaml":            {Data: []byte(snapshotYAML)},
		"snapshots/readme.txt":         {Data: []byte("ignored")},
	}
}

func TestFileLoader_CategoryExport(t *testing.T) {
	fsys := fstest.MapFS{"partners/signage.json": {Data: []byte(signageCategoryJSON)}}
	loader := NewFileLoaderFS(fsys, []string{"**/*.json"}, true)

	items, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "notion-signage-1", first.ID)
	assert.Equal(t, domain.ProvenanceKnowledgeBase, first.Provenance)
	assert.Equal(t, "디자인캐프", first.Prompt)
	assert.Equal(t, "partners/signage", first.Tags.CategoryPath)
	assert.Equal(t, "파트너사", first.Tags.DomainArea)
	assert.Equal(t, "간판", first.Tags.Topic)
	assert.Equal(t, []string{"피부과"}, first.Tags.Specialties)
	assert.Equal(t, []string{"야간 시인성"}, first.Tags.Highlights)
	assert.Equal(t, "https://example.com", first.Tags.ExternalLink)

	assert.Equal(t, "partners/signage#1", items[1].ID)
	assert.Equal(t, "partners/signage", items[1].Tags.CategoryPath)
}

func TestFileLoader_MixedPatterns(t *testing.T) {
	loader := NewFileLoaderFS(testFS(), []string{"snapshots/*.yaml", "notion/**/*.json"}, false)

	items, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "qa-7", items[0].ID)
	assert.Equal(t, domain.ProvenanceQA, items[0].Provenance)
	assert.Equal(t, "간판", items[0].Tags.DomainArea)

	// without derivation the category path stays empty
	assert.Equal(t, "", items[1].Tags.CategoryPath)
}

func TestFileLoader_UnsupportedExtension(t *testing.T) {
	loader := NewFileLoaderFS(testFS(), []string{"snapshots/*.yaml", "snapshots/*"}, false)

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported corpus file type")
}

func TestFileLoader_BadJSON(t *testing.T) {
	fsys := fstest.MapFS{"broken.json": {Data: []byte(`{"items": [`)}}
	loader := NewFileLoaderFS(fsys, []string{"*.json"}, false)

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode broken.json")
}

func TestFileLoader_BadProvenance(t *testing.T) {
	fsys := fstest.MapFS{"x.json": {Data: []byte(`{"items": [{"id": "1", "source": "sheet", "question": "q"}]}`)}}
	loader := NewFileLoaderFS(fsys, []string{"*.json"}, false)

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidProvenance)
}

func TestCategoryVocabulary(t *testing.T) {
	assert.Equal(t, "심화 콘텐츠", FieldForPath("advanced/signage"))
	assert.Equal(t, "간판", TopicForPath("advanced/signage"))
	assert.Equal(t, "의료기기 통증편", TopicForPath("advanced/medical-device-pain"))
	assert.Equal(t, "custom", FieldForPath("custom/thing"))
	assert.Equal(t, "thing", TopicForPath("custom/thing"))
}
