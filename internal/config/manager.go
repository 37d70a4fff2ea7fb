package config

import (
	"sync"

	"heylon/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager holds the live configuration and reloads it when the file changes.
// The engine calls Current() on every transition, so a settings flip takes
// effect on the next signal without a restart.
type Manager struct {
	mu  sync.RWMutex
	cfg *Config
	v   *viper.Viper
}

// NewManager loads the config at path and begins watching it.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{cfg: cfg}
	m.v = newViper()
	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return nil, err
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(m.v)
		if err != nil {
			logger.Warnf("config reload rejected (%s): %v", e.Name, err)
			return
		}
		m.mu.Lock()
		m.cfg = next
		m.mu.Unlock()
		logger.Infof("config reloaded from %s", e.Name)
	})
	m.v.WatchConfig()
	return m, nil
}

// NewStaticManager wraps a fixed config. Used in tests.
func NewStaticManager(cfg *Config) *Manager {
	return &Manager{cfg: cfg}
}

func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Replace swaps the live config. Tests use this to flip toggles mid-scenario.
func (m *Manager) Replace(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}
