// Package filterlist loads filter lists from disk into FilterList trees,
// reporting per-line parse failures and caching parsed trees in the binary
// format of package codec.
package filterlist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"agtree/ast"
	"agtree/codec"
	"agtree/config"
	"agtree/parser"
)

// LineError is a line that became an InvalidRule.
type LineError struct {
	Line    int // 1-based
	Raw     string
	Message string
	Start   int
	End     int
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s (%d-%d)", e.Line, e.Message, e.Start, e.End)
}

// Result is the outcome of loading one list.
type Result struct {
	Name      string
	Source    string
	List      *ast.FilterList
	Errors    []LineError
	FromCache bool
}

// Loader handles reading and parsing filter lists.
type Loader struct {
	Options      parser.Options
	CodecOptions codec.Options
	CacheDir     string // Directory for cached trees; empty disables the cache
	Logger       *slog.Logger
	Metrics      *Metrics // Optional
}

// NewLoader creates a Loader without a cache.
func NewLoader(opts parser.Options) *Loader {
	return &Loader{
		Options: opts,
		Logger:  slog.Default(),
	}
}

// FromConfig creates a Loader from the parser, codec and cache sections of
// cfg.
func FromConfig(cfg *config.Config, logger *slog.Logger, metrics *Metrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		Options:      cfg.ParserOptions(),
		CodecOptions: cfg.CodecOptions(),
		Logger:       logger,
		Metrics:      metrics,
	}
	if cfg.Cache.Enabled {
		l.CacheDir = cfg.Cache.Dir
	}
	return l
}

// Parse parses text as a filter list. It never fails: broken lines are kept
// as InvalidRule nodes and listed in Result.Errors.
func (l *Loader) Parse(name, text string) *Result {
	list := parser.ParseFilterList(text, l.Options)
	l.Metrics.observeList(list)
	return l.result(name, "", list, false)
}

// LoadFromPath reads and parses a local file, going through the binary cache
// when one is configured.
func (l *Loader) LoadFromPath(ctx context.Context, name, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { l.Metrics.observeDuration(time.Since(start).Seconds()) }()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat list: %w", err)
	}

	// 1. Try the cache first
	if l.CacheDir != "" {
		if list, ok := l.readCache(path, info); ok {
			l.Metrics.cacheHit()
			l.Logger.Info("using cached list", "name", name, "path", path, "rules", len(list.Children))
			return l.result(name, path, list, true), nil
		}
		l.Metrics.cacheMiss()
	}

	// 2. Fallback: parse the source
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	list := parser.ParseFilterList(string(data), l.Options)
	l.Metrics.observeList(list)

	if l.CacheDir != "" {
		if err := l.writeCache(path, info, list); err != nil {
			l.Logger.Warn("failed to write list cache", "path", path, "error", err)
		}
	}

	res := l.result(name, path, list, false)
	l.Logger.Info("parsed list", "name", name, "path", path,
		"rules", len(list.Children), "errors", len(res.Errors))
	return res, nil
}

// LoadSources loads every source in order. It stops at the first source
// that cannot be read.
func (l *Loader) LoadSources(ctx context.Context, sources []config.ListSource) ([]*Result, error) {
	results := make([]*Result, 0, len(sources))
	for _, src := range sources {
		res, err := l.LoadFromPath(ctx, src.Name, src.Path)
		if err != nil {
			return results, fmt.Errorf("failed to load list %q: %w", src.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (l *Loader) result(name, source string, list *ast.FilterList, fromCache bool) *Result {
	res := &Result{Name: name, Source: source, List: list, FromCache: fromCache}
	for i, rule := range list.Children {
		invalid, ok := rule.(*ast.InvalidRule)
		if !ok {
			continue
		}
		le := LineError{
			Line:    i + 1,
			Raw:     invalid.Raw,
			Message: invalid.Error.Message,
			Start:   invalid.Error.Start,
			End:     invalid.Error.End,
		}
		l.Logger.Debug("invalid rule", "list", name, "line", le.Line, "error", le.Message)
		res.Errors = append(res.Errors, le)
	}
	return res
}
