/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package plugins loads plugin manifests from disk and invokes their
// declared actions over HTTP. It backs the dispatcher's plugin boundary.
package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/heimdall/internal/dispatch"
)

// Manifest is one plugin's on-disk declaration.
type Manifest struct {
	Key      string           `yaml:"key"`
	Name     string           `yaml:"name"`
	Enabled  bool             `yaml:"enabled"`
	Endpoint string           `yaml:"endpoint"`
	Actions  []ManifestAction `yaml:"actions"`
}

// ManifestAction is one action a plugin exposes, with the events that
// trigger it.
type ManifestAction struct {
	ID     string   `yaml:"id"`
	Events []string `yaml:"events"`
}

// Manager reads plugin manifests from a directory and caches them for a
// refresh interval. It implements dispatch.PluginDirectory.
type Manager struct {
	dir     string
	refresh time.Duration
	client  *http.Client
	logger  zerolog.Logger

	mu       sync.RWMutex
	cached   []Manifest
	loadedAt time.Time
}

// NewManager creates a manifest-backed plugin manager.
func NewManager(dir string, refresh, invokeTimeout time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		dir:     dir,
		refresh: refresh,
		client:  &http.Client{Timeout: invokeTimeout},
		logger:  logger.With().Str("component", "plugins").Logger(),
	}
}

// EnabledWithActions returns enabled plugins with their declared actions,
// re-reading manifests when the cache has expired.
func (m *Manager) EnabledWithActions(ctx context.Context) ([]dispatch.PluginInfo, error) {
	manifests, err := m.load()
	if err != nil {
		return nil, err
	}

	var infos []dispatch.PluginInfo
	for _, manifest := range manifests {
		if !manifest.Enabled {
			continue
		}
		info := dispatch.PluginInfo{Key: manifest.Key}
		for _, action := range manifest.Actions {
			info.Actions = append(info.Actions, dispatch.PluginAction{
				ID:     action.ID,
				Events: action.Events,
			})
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// InvokeAction POSTs the action parameters to the plugin's endpoint.
func (m *Manager) InvokeAction(ctx context.Context, pluginKey, actionID string, params map[string]any) error {
	manifest, ok := m.find(pluginKey)
	if !ok {
		return fmt.Errorf("unknown plugin: %s", pluginKey)
	}
	if manifest.Endpoint == "" {
		return fmt.Errorf("plugin %s has no endpoint", pluginKey)
	}

	body, err := json.Marshal(map[string]any{
		"action": actionID,
		"params": params,
	})
	if err != nil {
		return fmt.Errorf("marshal action params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, manifest.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("invoke %s.%s: %w", pluginKey, actionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("plugin %s action %s returned status %d", pluginKey, actionID, resp.StatusCode)
	}
	return nil
}

// Invalidate drops the manifest cache so the next call re-reads disk.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.loadedAt = time.Time{}
	m.mu.Unlock()
}

func (m *Manager) find(key string) (Manifest, bool) {
	manifests, err := m.load()
	if err != nil {
		return Manifest{}, false
	}
	for _, manifest := range manifests {
		if manifest.Key == key {
			return manifest, true
		}
	}
	return Manifest{}, false
}

// load returns cached manifests, refreshing from disk when stale. A bad
// manifest file is skipped with a warning rather than failing the set.
func (m *Manager) load() ([]Manifest, error) {
	m.mu.RLock()
	if time.Since(m.loadedAt) < m.refresh {
		cached := m.cached
		m.mu.RUnlock()
		return cached, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Since(m.loadedAt) < m.refresh {
		return m.cached, nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			m.cached = nil
			m.loadedAt = time.Now()
			return nil, nil
		}
		return nil, fmt.Errorf("read plugin dir: %w", err)
	}

	var manifests []Manifest
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			m.logger.Warn().Err(err).Str("file", entry.Name()).Msg("failed to read plugin manifest")
			continue
		}

		var manifest Manifest
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			m.logger.Warn().Err(err).Str("file", entry.Name()).Msg("failed to parse plugin manifest")
			continue
		}
		if manifest.Key == "" {
			m.logger.Warn().Str("file", entry.Name()).Msg("plugin manifest missing key")
			continue
		}
		manifests = append(manifests, manifest)
	}

	m.cached = manifests
	m.loadedAt = time.Now()
	return manifests, nil
}
