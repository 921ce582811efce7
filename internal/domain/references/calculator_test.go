package references

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func url(root, rel string) string {
	return types.NewFile(filepath.Join(root, filepath.FromSlash(rel))).URL()
}

func TestCalculateExternalReferences(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":                 `import "app/util/strings.go"; see handler.go`,
		"handler.go":              "package app",
		"util/strings.go":         "package util",
		"unrelated.go":            "package app",
		"node_modules/handler.go": "ignored",
		".git/config":             "main.go",
	})
	p := project.New("demo", root, false)
	calc, err := New(DefaultConfig())
	require.NoError(t, err)

	res, err := calc.CalculateExternalReferences(context.Background(), p, types.Some(types.NewFile("main.go")))
	require.NoError(t, err)

	assert.True(t, res.Value.Contains(url(root, "handler.go")))
	assert.True(t, res.Value.Contains(url(root, "util/strings.go")))
	assert.False(t, res.Value.Contains(url(root, "unrelated.go")))
	assert.False(t, res.Value.Contains(url(root, "node_modules/handler.go")))
	assert.False(t, res.Value.Contains(url(root, "main.go")))
	assert.Equal(t, 2, res.Value.Len())
}

func TestNoPreviousFile(t *testing.T) {
	calc, err := New(DefaultConfig())
	require.NoError(t, err)

	res, err := calc.CalculateExternalReferences(context.Background(), project.New("demo", "", false), types.None[types.File]())
	require.NoError(t, err)
	assert.Zero(t, res.Value.Len())
}

func TestMissingFileFails(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": ""})
	calc, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = calc.CalculateExternalReferences(context.Background(), project.New("demo", root, false), types.Some(types.NewFile("missing.go")))
	assert.Error(t, err)
}

func TestNoBasePath(t *testing.T) {
	calc, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = calc.CalculateExternalReferences(context.Background(), project.New("demo", "", false), types.Some(types.NewFile("a.go")))
	assert.ErrorIs(t, err, ErrNoBasePath)
}

func TestMaxFileSize(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.txt":   "0123456789 target.go",
		"target.go": "",
	})
	calc, err := New(Config{MaxFileSize: 10})
	require.NoError(t, err)

	res, err := calc.CalculateExternalReferences(context.Background(), project.New("demo", root, false), types.Some(types.NewFile("big.txt")))
	require.NoError(t, err)
	assert.Zero(t, res.Value.Len())
}

func TestIndexExcludes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go":            "",
		"vendor/lib/b.go": "",
		"gen/c.pb.go":     "",
	})
	calc, err := New(Config{Exclude: append(DefaultExclude, "**/*.pb.go")})
	require.NoError(t, err)

	files, err := calc.Index(context.Background(), project.New("demo", root, false))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(root, "a.go")}, files)
}

func TestIndexCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": ""})
	calc, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = calc.Index(ctx, project.New("demo", root, false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidPattern(t *testing.T) {
	_, err := New(Config{Exclude: []string{"[unclosed"}})
	assert.Error(t, err)
}
