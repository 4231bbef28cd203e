package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/xuri/excelize/v2"
)

// SheetColumns holds zero-based column positions of one sheet
type SheetColumns struct {
	Question  int
	Answer    int
	Field     int
	Category  int
	TopicPath int
}

// SheetsConfig describes the spreadsheet export of the Q&A and FAQ sheets
type SheetsConfig struct {
	Path       string
	QASheet    string
	FAQSheet   string
	QAColumns  SheetColumns
	FAQColumns SheetColumns
}

// DefaultSheetsConfig returns the layout of the consultation spreadsheet.
func DefaultSheetsConfig(path string) SheetsConfig {
	return SheetsConfig{
		Path:       path,
		QASheet:    "Q&A",
		FAQSheet:   "생성형 FAQ",
		QAColumns:  SheetColumns{Question: 2, Answer: 3, Field: 7, Category: 8, TopicPath: -1},
		FAQColumns: SheetColumns{Question: 2, Answer: 3, Field: -1, Category: -1, TopicPath: 1},
	}
}

// SheetsLoader reads Q&A and FAQ rows from an .xlsx export.
type SheetsLoader struct {
	cfg SheetsConfig
}

// NewSheetsLoader creates a SheetsLoader.
func NewSheetsLoader(cfg SheetsConfig) *SheetsLoader {
	return &SheetsLoader{cfg: cfg}
}

// Load opens the workbook and parses both sheets. A missing sheet is not an
// error; an unreadable workbook is.
func (l *SheetsLoader) Load(ctx context.Context) ([]domain.KnowledgeItem, error) {
	f, err := excelize.OpenFile(l.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	available := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		available[name] = true
	}

	var items []domain.KnowledgeItem
	if available[l.cfg.QASheet] {
		rows, err := f.GetRows(l.cfg.QASheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", l.cfg.QASheet, err)
		}
		items = append(items, ParseQARows(rows, l.cfg.QAColumns)...)
	}

	if err := ctx.Err(); err != nil {
		return items, err
	}

	if available[l.cfg.FAQSheet] {
		rows, err := f.GetRows(l.cfg.FAQSheet)
		if err != nil {
			return items, fmt.Errorf("failed to read sheet %s: %w", l.cfg.FAQSheet, err)
		}
		items = append(items, ParseFAQRows(rows, l.cfg.FAQColumns)...)
	}

	return items, nil
}

// ParseQARows converts Q&A sheet rows, header first, into items. Rows
// without a question are dropped.
func ParseQARows(rows [][]string, cols SheetColumns) []domain.KnowledgeItem {
	if len(rows) < 2 {
		return nil
	}

	var items []domain.KnowledgeItem
	for idx, row := range rows[1:] {
		question := cell(row, cols.Question)
		if question == "" {
			continue
		}
		items = append(items, domain.KnowledgeItem{
			ID:         fmt.Sprintf("qa-%d", idx),
			Provenance: domain.ProvenanceQA,
			Prompt:     question,
			Body:       cell(row, cols.Answer),
			Tags: domain.Tags{
				DomainArea: orDefault(cell(row, cols.Field), "기타"),
				Topic:      orDefault(cell(row, cols.Category), "일반"),
			},
		})
	}
	return items
}

// ParseFAQRows converts FAQ sheet rows, header first, into items. The domain
// area is the first segment of the "field>topic" path; the path itself is
// kept slash-delimited as the category path.
func ParseFAQRows(rows [][]string, cols SheetColumns) []domain.KnowledgeItem {
	if len(rows) < 2 {
		return nil
	}

	var items []domain.KnowledgeItem
	for idx, row := range rows[1:] {
		question := cell(row, cols.Question)
		if question == "" {
			continue
		}

		parts := strings.Split(cell(row, cols.TopicPath), ">")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field := orDefault(parts[0], "기타")
		topic := "일반"
		if len(parts) > 1 {
			topic = orDefault(parts[1], topic)
		}

		items = append(items, domain.KnowledgeItem{
			ID:         fmt.Sprintf("faq-%d", idx),
			Provenance: domain.ProvenanceFAQ,
			Prompt:     question,
			Body:       cell(row, cols.Answer),
			Tags: domain.Tags{
				DomainArea:   field,
				Topic:        topic,
				CategoryPath: strings.Trim(strings.Join(parts, "/"), "/"),
			},
		})
	}
	return items
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
