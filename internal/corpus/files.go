package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileLoader reads JSON and YAML corpus files matched by glob patterns
// (doublestar syntax, e.g. "notion/**/*.json") relative to a root directory.
type FileLoader struct {
	fsys     fs.FS
	patterns []string
	// deriveCategories fills categoryPath, domainArea and topic from the file's
	// relative path, the layout of the knowledge-base category export.
	deriveCategories bool
}

// FileLoaderConfig holds configuration for FileLoader
type FileLoaderConfig struct {
	Root             string
	Patterns         []string
	DeriveCategories bool
}

// NewFileLoader creates a FileLoader rooted at cfg.Root.
func NewFileLoader(cfg FileLoaderConfig) *FileLoader {
	return NewFileLoaderFS(os.DirFS(cfg.Root), cfg.Patterns, cfg.DeriveCategories)
}

// NewFileLoaderFS creates a FileLoader over an arbitrary file system.
func NewFileLoaderFS(fsys fs.FS, patterns []string, deriveCategories bool) *FileLoader {
	return &FileLoader{fsys: fsys, patterns: patterns, deriveCategories: deriveCategories}
}

// Load reads every matched file in pattern order, files sorted by name.
func (l *FileLoader) Load(ctx context.Context) ([]domain.KnowledgeItem, error) {
	var items []domain.KnowledgeItem
	seen := make(map[string]bool)

	for _, pattern := range l.patterns {
		matches, err := doublestar.Glob(l.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return items, fmt.Errorf("invalid corpus pattern %q: %w", pattern, err)
		}

		for _, name := range matches {
			if seen[name] {
				continue
			}
			seen[name] = true

			if err := ctx.Err(); err != nil {
				return items, err
			}

			loaded, err := l.loadFile(name)
			if err != nil {
				return items, err
			}
			items = append(items, loaded...)
		}
	}

	return items, nil
}

func (l *FileLoader) loadFile(name string) ([]domain.KnowledgeItem, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	doc, err := decodeDocument(name, data)
	if err != nil {
		return nil, err
	}

	categoryPath := doc.CategoryPath
	if categoryPath == "" && l.deriveCategories {
		categoryPath = strings.TrimSuffix(name, path.Ext(name))
	}

	items := make([]domain.KnowledgeItem, 0, len(doc.Items))
	for i, raw := range doc.Items {
		item, err := raw.toItem(categoryPath, fmt.Sprintf("%s#%d", strings.TrimSuffix(name, path.Ext(name)), i))
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", name, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeDocument(name string, data []byte) (*document, error) {
	var doc document
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported corpus file type: %s", name)
	}
	return &doc, nil
}

// document is the on-disk shape of a corpus file: a snapshot of canonical
// items, or a category export whose items use question/answer/metadata.
type document struct {
	CategoryPath string    `json:"categoryPath" yaml:"categoryPath"`
	Items        []rawItem `json:"items" yaml:"items"`
}

type rawItem struct {
	ID         string       `json:"id" yaml:"id"`
	Provenance string       `json:"provenance" yaml:"provenance"`
	Source     string       `json:"source" yaml:"source"`
	Prompt     string       `json:"prompt" yaml:"prompt"`
	Body       string       `json:"body" yaml:"body"`
	Question   string       `json:"question" yaml:"question"`
	Answer     string       `json:"answer" yaml:"answer"`
	Tags       *domain.Tags `json:"tags" yaml:"tags"`
	Metadata   *rawMetadata `json:"metadata" yaml:"metadata"`
}

type rawMetadata struct {
	Field        string   `json:"field" yaml:"field"`
	Topic        string   `json:"topic" yaml:"topic"`
	Category     string   `json:"category" yaml:"category"`
	CategoryPath string   `json:"categoryPath" yaml:"categoryPath"`
	Specialties  []string `json:"specialties" yaml:"specialties"`
	Features     []string `json:"features" yaml:"features"`
	Website      string   `json:"website" yaml:"website"`
	URL          string   `json:"url" yaml:"url"`
}

func (r rawItem) toItem(categoryPath, fallbackID string) (domain.KnowledgeItem, error) {
	item := domain.KnowledgeItem{
		ID:     firstNonEmpty(r.ID, fallbackID),
		Prompt: firstNonEmpty(r.Prompt, r.Question),
		Body:   firstNonEmpty(r.Body, r.Answer),
	}

	item.Provenance = domain.ProvenanceKnowledgeBase
	if src := firstNonEmpty(r.Provenance, r.Source); src != "" {
		p, err := domain.ParseProvenance(src)
		if err != nil {
			return item, err
		}
		item.Provenance = p
	}

	switch {
	case r.Tags != nil:
		item.Tags = *r.Tags
	case r.Metadata != nil:
		m := r.Metadata
		item.Tags = domain.Tags{
			DomainArea:   m.Field,
			Topic:        firstNonEmpty(m.Topic, m.Category),
			CategoryPath: m.CategoryPath,
			Specialties:  m.Specialties,
			Highlights:   m.Features,
			ExternalLink: firstNonEmpty(m.Website, m.URL),
		}
	}

	if item.Provenance == domain.ProvenanceKnowledgeBase && categoryPath != "" {
		if item.Tags.CategoryPath == "" {
			item.Tags.CategoryPath = categoryPath
		}
		if item.Tags.DomainArea == "" {
			item.Tags.DomainArea = FieldForPath(item.Tags.CategoryPath)
		}
		if item.Tags.Topic == "" {
			item.Tags.Topic = TopicForPath(item.Tags.CategoryPath)
		}
	}

	return item, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
