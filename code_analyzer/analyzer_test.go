package code_analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJS = `import fs from 'fs';
import { join } from "path";

export function readAll(dir) {
  return fs.readdirSync(join(dir, "."));
}

class Store {
  get(key) {
    return key;
  }
}

const arrow = () => 1;
`

func TestAnalyzeJavaScript_Outline(t *testing.T) {
	analyzer := NewCodeAnalyzer("")

	outline, err := analyzer.AnalyzeJavaScript(context.Background(), []byte(sampleJS))
	require.NoError(t, err)

	require.Len(t, outline.Imports, 2)
	assert.Equal(t, "fs", outline.Imports[0].Source)
	assert.Equal(t, 1, outline.Imports[0].Start)
	assert.Equal(t, "path", outline.Imports[1].Source)

	require.Len(t, outline.Functions, 1)
	assert.Equal(t, "readAll", outline.Functions[0].Name)
	assert.Equal(t, 4, outline.Functions[0].Start)
	assert.Equal(t, 6, outline.Functions[0].End)

	require.Len(t, outline.Classes, 1)
	assert.Equal(t, "Store", outline.Classes[0].Name)
	assert.Equal(t, 8, outline.Classes[0].Start)
	assert.Equal(t, 12, outline.Classes[0].End)
}

func TestExtractSymbols_UsesCache(t *testing.T) {
	analyzer := NewCodeAnalyzer(t.TempDir())
	ctx := context.Background()

	symbols, err := analyzer.ExtractSymbols(ctx, "lib/store.js", []byte(sampleJS))
	require.NoError(t, err)

	names := map[string]string{}
	for _, s := range symbols {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, "function", names["readAll"])
	assert.Equal(t, "class", names["Store"])
	assert.Equal(t, "method", names["get"])

	again, err := analyzer.ExtractSymbols(ctx, "lib/store.js", []byte(sampleJS))
	require.NoError(t, err)
	assert.Equal(t, symbols, again)
	assert.Equal(t, int64(1), analyzer.GetCacheStats()["cache_hits"])

	require.NoError(t, analyzer.ClearCache())
	assert.Equal(t, 0, analyzer.GetCacheStats()["cache_files"])
}

func TestExtractSymbols_UnsupportedFile(t *testing.T) {
	analyzer := NewCodeAnalyzer("")
	symbols, err := analyzer.ExtractSymbols(context.Background(), "notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Empty(t, symbols)
	assert.False(t, analyzer.SupportsFile("notes.txt"))
	assert.True(t, analyzer.SupportsFile("main.GO"))
}

func TestDiagnose_ReportsSyntaxErrors(t *testing.T) {
	analyzer := NewCodeAnalyzer("")
	ctx := context.Background()

	problems, err := analyzer.Diagnose(ctx, "ok.js", []byte("const a = 1;\n"))
	require.NoError(t, err)
	assert.Empty(t, problems)

	problems, err = analyzer.Diagnose(ctx, "bad.js", []byte("const a = 1;\nfunction f( {\n"))
	require.NoError(t, err)
	require.NotEmpty(t, problems)
	assert.GreaterOrEqual(t, problems[0].Line, 2)
}
