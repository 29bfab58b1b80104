package filterlist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"agtree/ast"
	"agtree/codec"
	parseErrors "agtree/errors"
)

// CacheEntry describes a cached tree and the source it was parsed from.
type CacheEntry struct {
	Source        string    `json:"source"`
	Size          int64     `json:"size"`
	ModTime       time.Time `json:"mod_time"`
	SchemaVersion uint32    `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	TreeFile      string    `json:"tree_file"` // Relative filename for the binary tree
}

// cacheKey covers the source path and every option that changes the tree.
func (l *Loader) cacheKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	o := l.Options
	fingerprint := fmt.Sprintf("%s|%t|%t|%t|%t|%t|%d|%t|%t",
		abs, o.IncludeRaws, o.IsLocIncluded, o.ParseUboSpecificRules, o.ParseAbpSpecificRules,
		o.ParseHostRules, o.MaxNestingDepth, o.ModifierValidator != nil, l.CodecOptions.IncludeLocations)
	hash := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(hash[:8]) // First 8 bytes (16 chars)
}

func (l *Loader) cachePaths(path string) (meta, tree string) {
	key := l.cacheKey(path)
	return filepath.Join(l.CacheDir, key+".meta.json"), filepath.Join(l.CacheDir, key+".tree.bin")
}

// readCache returns the cached tree for path if it is still fresh.
func (l *Loader) readCache(path string, info fs.FileInfo) (*ast.FilterList, bool) {
	metaFile, treeFile := l.cachePaths(path)

	data, err := os.ReadFile(metaFile)
	if err != nil {
		return nil, false
	}
	var meta CacheEntry
	if err := json.Unmarshal(data, &meta); err != nil {
		l.Logger.Warn("corrupt cache meta", "path", metaFile, "error", err)
		return nil, false
	}
	if meta.Size != info.Size() || !meta.ModTime.Equal(info.ModTime()) {
		l.Logger.Debug("cache stale", "path", path)
		return nil, false
	}
	if meta.SchemaVersion != codec.SchemaVersion {
		l.Logger.Debug("cache schema changed", "path", path, "got", meta.SchemaVersion, "want", codec.SchemaVersion)
		return nil, false
	}

	data, err = os.ReadFile(treeFile)
	if err != nil {
		return nil, false
	}
	list, err := codec.UnmarshalFilterList(data)
	if err != nil {
		if errors.Is(err, parseErrors.ErrSchemaMismatch) {
			l.Logger.Debug("cache schema changed", "path", path, "error", err)
		} else {
			l.Logger.Warn("failed to decode cache", "path", treeFile, "error", err)
		}
		return nil, false
	}
	return list, true
}

func (l *Loader) writeCache(path string, info fs.FileInfo, list *ast.FilterList) error {
	if err := os.MkdirAll(l.CacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	metaFile, treeFile := l.cachePaths(path)

	out := codec.NewOutputByteBuffer()
	if err := codec.Serialize(list, out, l.CodecOptions); err != nil {
		return fmt.Errorf("failed to serialize list: %w", err)
	}

	tmp, err := os.CreateTemp(l.CacheDir, ".tree-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if _, err := out.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), treeFile); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move cache file: %w", err)
	}

	meta := CacheEntry{
		Source:        path,
		Size:          info.Size(),
		ModTime:       info.ModTime(),
		SchemaVersion: codec.SchemaVersion,
		CreatedAt:     time.Now(),
		TreeFile:      filepath.Base(treeFile),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metaFile, data, 0o644)
}
