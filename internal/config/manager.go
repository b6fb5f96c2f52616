package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// Manager loads a key=value configuration file through koanf and
// reloads it when the file changes on disk.
type Manager struct {
	mu      sync.RWMutex
	k       *koanf.Koanf
	path    string
	logger  *logging.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}

	reloadMu sync.Mutex
	onReload []func()
}

// NewManager returns an empty Manager; call Load before reading keys.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.New("config")
	}
	return &Manager{k: koanf.New("."), logger: logger}
}

// Load reads path and replaces the current configuration atomically.
func (m *Manager) Load(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), NewKVParser()); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	m.mu.Lock()
	m.k = k
	m.path = path
	m.mu.Unlock()
	return nil
}

// Reload re-reads the last-loaded path and notifies OnReload callbacks.
func (m *Manager) Reload() error {
	m.mu.RLock()
	path := m.path
	m.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("reload: no config loaded yet")
	}
	if err := m.Load(path); err != nil {
		return err
	}
	m.reloadMu.Lock()
	callbacks := append([]func(){}, m.onReload...)
	m.reloadMu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// OnReload registers fn to run after every successful Reload.
func (m *Manager) OnReload(fn func()) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// Watch starts an fsnotify watch on the loaded file's directory and
// calls Reload whenever the file is written or replaced. Reload
// failures are logged and swallowed so a transient editor-save race
// never takes the orchestrator down.
func (m *Manager) Watch() error {
	m.mu.RLock()
	path := m.path
	m.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("watch: no config loaded yet")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		target := filepath.Clean(path)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.Reload(); err != nil {
					m.logger.WithError(err).Warn("config reload failed, keeping previous configuration")
				} else {
					m.logger.Info("configuration reloaded")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.WithError(err).Warn("config watcher error")
			case <-done:
				return
			}
		}
	}()
	return nil
}

// Close stops the hot-reload watcher, if running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher == nil {
		return nil
	}
	close(m.done)
	err := m.watcher.Close()
	m.watcher = nil
	return err
}

func (m *Manager) snapshot() *koanf.Koanf {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.k
}

// String returns a string value, or def if the key is absent.
func (m *Manager) String(key, def string) string {
	k := m.snapshot()
	if !k.Exists(key) {
		return def
	}
	return k.String(key)
}

// Int returns an integer value, or def if absent or not numeric.
func (m *Manager) Int(key string, def int) int {
	k := m.snapshot()
	if !k.Exists(key) {
		return def
	}
	switch v := k.Get(key).(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns a float value, or def if absent.
func (m *Manager) Float(key string, def float64) float64 {
	k := m.snapshot()
	if !k.Exists(key) {
		return def
	}
	return k.Float64(key)
}

// Bool returns a boolean value. 1/0 (stored as int64 by
// the KV parser) are accepted alongside true/false/yes/no.
func (m *Manager) Bool(key string, def bool) bool {
	k := m.snapshot()
	if !k.Exists(key) {
		return def
	}
	switch v := k.Get(key).(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return k.Bool(key)
	}
}

// Seconds returns a float-seconds value as a time.Duration.
func (m *Manager) Seconds(key string, def time.Duration) time.Duration {
	k := m.snapshot()
	if !k.Exists(key) {
		return def
	}
	return time.Duration(k.Float64(key) * float64(time.Second))
}

// All returns a snapshot of every loaded key=value pair, used by the
// REST control plane's /config route.
func (m *Manager) All() map[string]interface{} {
	return m.snapshot().All()
}

// DefaultConfigDir resolves the default configuration directory per
// $XDG_CONFIG_HOME if set, else $HOME/.config.
func DefaultConfigDir(appName string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(os.Getenv("HOME"), ".config", appName)
}
