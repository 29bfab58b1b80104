package filterlist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agtree/ast"
	"agtree/codec"
	"agtree/config"
	"agtree/logging"
	"agtree/parser"
)

const sampleList = `! Title: Sample
||ads.example^$script
example.com##.banner

example.com##
`

func newTestLoader(t *testing.T, cacheDir string) (*Loader, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	l := NewLoader(parser.DefaultOptions())
	l.CacheDir = cacheDir
	l.Logger = logging.Discard()
	l.Metrics = metrics
	return l, metrics
}

func writeList(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Parse(t *testing.T) {
	l, metrics := newTestLoader(t, "")

	res := l.Parse("sample", sampleList)
	require.Len(t, res.List.Children, 5)
	assert.IsType(t, &ast.MetadataCommentRule{}, res.List.Children[0])
	assert.IsType(t, &ast.NetworkRule{}, res.List.Children[1])
	assert.IsType(t, &ast.ElementHidingRule{}, res.List.Children[2])
	assert.IsType(t, &ast.EmptyRule{}, res.List.Children[3])
	assert.IsType(t, &ast.InvalidRule{}, res.List.Children[4])

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 5, res.Errors[0].Line)
	assert.Equal(t, "example.com##", res.Errors[0].Raw)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.parseErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rulesTotal.WithLabelValues(string(ast.CategoryNetwork))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rulesTotal.WithLabelValues(string(ast.CategoryCosmetic))))
}

func TestLoader_LoadFromPathCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeList(t, dir, sampleList)
	l, metrics := newTestLoader(t, filepath.Join(dir, "cache"))
	ctx := context.Background()

	first, err := l.LoadFromPath(ctx, "sample", path)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := l.LoadFromPath(ctx, "sample", path)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.List, second.List)
	assert.Equal(t, first.Errors, second.Errors)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestLoader_StaleCache(t *testing.T) {
	dir := t.TempDir()
	path := writeList(t, dir, sampleList)
	l, metrics := newTestLoader(t, filepath.Join(dir, "cache"))
	ctx := context.Background()

	_, err := l.LoadFromPath(ctx, "sample", path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("||other.example^\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	res, err := l.LoadFromPath(ctx, "sample", path)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	require.Len(t, res.List.Children, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestLoader_SchemaMismatchFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeList(t, dir, sampleList)
	l, metrics := newTestLoader(t, filepath.Join(dir, "cache"))
	ctx := context.Background()

	_, err := l.LoadFromPath(ctx, "sample", path)
	require.NoError(t, err)

	// Rewrite the tree with a future schema version
	_, treeFile := l.cachePaths(path)
	out := codec.NewOutputByteBuffer()
	out.WriteUint32(codec.SchemaVersion + 1)
	out.WriteUint8(0)
	require.NoError(t, os.WriteFile(treeFile, out.Bytes(), 0o644))

	res, err := l.LoadFromPath(ctx, "sample", path)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Len(t, res.List.Children, 5)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.cacheHits))
}

func TestLoader_CacheKeyDependsOnOptions(t *testing.T) {
	l, _ := newTestLoader(t, t.TempDir())
	before := l.cacheKey("list.txt")

	l.Options.IsLocIncluded = true
	assert.NotEqual(t, before, l.cacheKey("list.txt"))
	assert.Len(t, before, 16)
}

func TestLoader_LoadSources(t *testing.T) {
	dir := t.TempDir()
	path := writeList(t, dir, sampleList)

	cfg := config.Default()
	cfg.Cache = config.CacheConfig{Enabled: true, Dir: filepath.Join(dir, "cache")}
	l := FromConfig(cfg, logging.Discard(), nil)
	assert.Equal(t, cfg.Cache.Dir, l.CacheDir)

	results, err := l.LoadSources(context.Background(), []config.ListSource{
		{Name: "a", Path: path},
		{Name: "missing", Path: filepath.Join(dir, "nope.txt")},
	})
	assert.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Name)
}

func TestLoader_CancelledContext(t *testing.T) {
	l, _ := newTestLoader(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.LoadFromPath(ctx, "x", "x.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
