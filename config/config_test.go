package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agtree/compat"
	"agtree/logging"
)

const sampleConfig = `
parser:
  tolerant: false
  include_locations: true
  max_nesting_depth: 8
  check_modifiers: true
codec:
  include_locations: true
cache:
  enabled: true
  dir: /tmp/agtree
logging:
  level: debug
  format: json
lists:
  - name: base
    path: lists/base.txt
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestManager_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, sampleConfig)

	m := NewManager(path)
	var called int
	m.LoadCallback = func(c *Config) error {
		called++
		return nil
	}
	require.NoError(t, m.Load())
	assert.Equal(t, 1, called)

	cfg := m.Get()
	assert.False(t, cfg.Parser.Tolerant)
	assert.Equal(t, 8, cfg.Parser.MaxNestingDepth)
	// Absent fields keep their defaults
	assert.True(t, cfg.Parser.ParseUboSpecificRules)
	assert.Equal(t, "lists/base.txt", cfg.Lists[0].Path)

	opts := cfg.ParserOptions()
	assert.True(t, opts.IsLocIncluded)
	assert.Same(t, compat.Default(), opts.ModifierValidator)
	assert.True(t, cfg.CodecOptions().IncludeLocations)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"zero depth", func(c *Config) { c.Parser.MaxNestingDepth = 0 }, false},
		{"cache without dir", func(c *Config) { c.Cache.Enabled = true }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"list without path", func(c *Config) { c.Lists = []ListSource{{Name: "x"}} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestManager_LoadInvalidKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, sampleConfig)

	m := NewManager(path)
	require.NoError(t, m.Load())
	before := m.Get()

	writeFile(t, path, "parser:\n  max_nesting_depth: 0\n")
	assert.Error(t, m.Load())
	assert.Same(t, before, m.Get())
}

func TestManager_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, sampleConfig)

	m := NewManager(path)
	m.Logger = logging.Discard()
	require.NoError(t, m.Load())

	var reloads atomic.Int32
	m.LoadCallback = func(*Config) error {
		reloads.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "parser:\n  max_nesting_depth: 4\n")

	assert.Eventually(t, func() bool {
		return m.Get().Parser.MaxNestingDepth == 4
	}, 2*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))

	cancel()
	require.NoError(t, <-done)
}

func TestLoggerConfig(t *testing.T) {
	c := Default()
	c.Logging.Format = "json"
	lc := c.LoggerConfig(os.Stdout)
	_, err := logging.New(lc)
	assert.NoError(t, err)
}
