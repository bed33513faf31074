package utils

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDefaultIgnored(t *testing.T) {
	assert.True(t, IsDefaultIgnored("node_modules/react/index.js"))
	assert.True(t, IsDefaultIgnored("src/.git/config"))
	assert.True(t, IsDefaultIgnored("assets/logo.PNG"))
	assert.False(t, IsDefaultIgnored("src/main.js"))
}

func TestIgnoreMatcher_Patterns(t *testing.T) {
	m, err := NewIgnoreMatcher([]string{"*.secret", "tmp/", "!keep.secret", "# comment", ""})
	require.NoError(t, err)

	assert.True(t, m.Ignored("a.secret"))
	assert.True(t, m.Ignored("deep/dir/b.secret"))
	assert.True(t, m.Ignored("tmp/file.txt"))
	assert.False(t, m.Ignored("keep.secret"))
	assert.False(t, m.Ignored("src/app.js"))
	assert.False(t, m.Ignored(""))
}

func TestIgnoreMatcher_NilIsSafe(t *testing.T) {
	var m *IgnoreMatcher
	assert.False(t, m.Ignored("src/app.js"))
	assert.True(t, m.Ignored("node_modules/x.js"))
}

func TestLoadIgnoreMatcher_ReadsRootFiles(t *testing.T) {
	ClearIgnoreCache()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, ".gitignore", []byte("*.env\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, ".aiignore", []byte("private/\n"), 0o644))

	m, err := LoadIgnoreMatcher(fsys)
	require.NoError(t, err)
	assert.True(t, m.Ignored("config/prod.env"))
	assert.True(t, m.Ignored("private/notes.md"))
	assert.False(t, m.Ignored("public/notes.md"))

	again, err := LoadIgnoreMatcher(fsys)
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestLoadIgnoreMatcher_NoFiles(t *testing.T) {
	ClearIgnoreCache()
	m, err := LoadIgnoreMatcher(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.False(t, m.Ignored("anything.txt"))
}
