package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryUpHasDown(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}

	for _, n := range names {
		if base, ok := strings.CutSuffix(n, ".up.sql"); ok {
			assert.True(t, have[base+".down.sql"], "missing down migration for %s", n)
		}
	}
}

func TestKnowledgeSchema(t *testing.T) {
	data, err := fs.ReadFile(FS, "000001_knowledge_items.up.sql")
	require.NoError(t, err)

	sql := string(data)
	for _, col := range []string{"seq", "provenance", "prompt", "specialties", "highlights", "source"} {
		assert.Contains(t, sql, col)
	}
}
