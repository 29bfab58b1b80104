package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Manager handles thread-safe configuration access and updates.
type Manager struct {
	mu           sync.RWMutex
	current      *Config
	configPath   string
	Logger       *slog.Logger
	LoadCallback func(*Config) error // Optional callback after load
}

// NewManager creates a new configuration manager.
func NewManager(path string) *Manager {
	return &Manager{
		configPath: path,
		current:    Default(),
		Logger:     slog.Default(),
	}
}

// Load reads the configuration file from disk and updates the current state.
// A file that fails to parse or validate leaves the current state untouched.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	newConfig := Default()
	if err := yaml.Unmarshal(data, newConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := newConfig.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = newConfig
	m.mu.Unlock()

	if m.LoadCallback != nil {
		if err := m.LoadCallback(newConfig); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the current configuration safely.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Watch reloads the configuration whenever the file is written or
// replaced. It blocks until ctx is cancelled. Reload failures are logged
// and the previous configuration stays active.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	target := filepath.Clean(m.configPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	m.Logger.Info("config watcher started", "path", target)

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := m.Load(); err != nil {
				m.Logger.Error("config reload failed", "path", target, "error", err)
				continue
			}
			m.Logger.Info("config reloaded", "path", target, "op", event.Op.String())

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			m.Logger.Error("config watcher error", "error", err)
		}
	}
}
