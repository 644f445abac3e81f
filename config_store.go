// config_store.go: Test-suite configuration store with Argus hot reload
//
// This file implements the configuration collaborator the detection engine
// consumes: a directory of property files (the test adapters' PtfConfig
// view) loaded into structured property groups with lookup by file and by
// property key, value edits, persistence back to disk and optional hot
// reload through the Argus watcher.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// ConfigFile is one loaded configuration file: its base name, its on-disk
// path and its property groups.
type ConfigFile struct {
	Name   string          `json:"name"`
	Path   string          `json:"path"`
	Groups []PropertyGroup `json:"groups"`
}

// configFileShape is the on-disk document shape.
type configFileShape struct {
	Groups []PropertyGroup `json:"groups" yaml:"groups"`
}

// ConfigStoreOptions customizes configuration store behavior.
type ConfigStoreOptions struct {
	// PollInterval is the Argus watch poll interval.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// CacheTTL is the Argus stat cache TTL.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// Audit configures the Argus audit trail for configuration changes.
	Audit argus.AuditConfig `json:"audit" yaml:"audit"`
}

// DefaultConfigStoreOptions returns defaults tuned for test-suite property
// files, which change rarely outside of detection runs.
func DefaultConfigStoreOptions() ConfigStoreOptions {
	return ConfigStoreOptions{
		PollInterval: 10 * time.Second,
		CacheTTL:     5 * time.Second,
		Audit: argus.AuditConfig{
			Enabled:       false,
			OutputFile:    "go-autodetect-config-audit.jsonl",
			MinLevel:      argus.AuditInfo,
			BufferSize:    1000,
			FlushInterval: 10 * time.Second,
		},
	}
}

// ConfigStore loads and persists the test-suite property files.
//
// Reads are served from an in-memory view under a reader-writer lock;
// persistence writes the edited view back to the file it came from. With
// watching enabled, external edits are re-loaded through Argus and replace
// the in-memory view for the changed file only.
type ConfigStore struct {
	dir     string
	options ConfigStoreOptions
	logger  Logger

	mu    sync.RWMutex
	files map[string]*ConfigFile

	watcher  *argus.Watcher
	watching atomic.Bool
	stopOnce sync.Once
}

// NewConfigStore loads every YAML/JSON property file directly under dir.
// A file that cannot be parsed fails the whole load; configuration load
// failure is fatal to session initialization.
func NewConfigStore(dir string, options ConfigStoreOptions, logger any) (*ConfigStore, error) {
	cs := &ConfigStore{
		dir:     dir,
		options: options,
		logger:  NewLogger(logger),
		files:   make(map[string]*ConfigFile),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewConfigLoadError(dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isConfigFileName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		file, err := loadConfigFile(path)
		if err != nil {
			return nil, NewConfigLoadError(path, err)
		}
		cs.files[file.Name] = file
	}

	cs.logger.Info("Configuration store loaded", "dir", dir, "files", len(cs.files))
	return cs, nil
}

// isConfigFileName reports whether the file name carries a supported
// configuration extension.
func isConfigFileName(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// loadConfigFile reads and parses one property file, detecting the format
// from the path.
func loadConfigFile(path string) (*ConfigFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var shape configFileShape
	switch argus.DetectFormat(path) {
	case argus.FormatJSON:
		err = json.Unmarshal(content, &shape)
	default:
		err = yaml.Unmarshal(content, &shape)
	}
	if err != nil {
		return nil, NewConfigParseError(path, err)
	}

	return &ConfigFile{
		Name:   filepath.Base(path),
		Path:   path,
		Groups: shape.Groups,
	}, nil
}

// FileNames returns the loaded configuration file names, sorted.
func (cs *ConfigStore) FileNames() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	names := make([]string, 0, len(cs.files))
	for name := range cs.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File returns a copy of the named configuration file.
func (cs *ConfigStore) File(name string) (ConfigFile, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	file, ok := cs.files[name]
	if !ok {
		return ConfigFile{}, NewConfigNotFoundError(name)
	}
	return copyConfigFile(file), nil
}

// PropertyGroups returns all property groups across the loaded files,
// ordered by file name.
func (cs *ConfigStore) PropertyGroups() []PropertyGroup {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	names := make([]string, 0, len(cs.files))
	for name := range cs.files {
		names = append(names, name)
	}
	sort.Strings(names)

	var groups []PropertyGroup
	for _, name := range names {
		for _, group := range cs.files[name].Groups {
			properties := make([]Property, len(group.Properties))
			copy(properties, group.Properties)
			groups = append(groups, PropertyGroup{Name: group.Name, Properties: properties})
		}
	}
	return groups
}

// Property looks a property up by key across all loaded files.
func (cs *ConfigStore) Property(key string) (Property, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	for _, file := range cs.files {
		for _, group := range file.Groups {
			for _, property := range group.Properties {
				if property.Key == key {
					return property, nil
				}
			}
		}
	}
	return Property{}, NewPropertyNotFoundError(key)
}

// SetProperty overwrites the value of the property with the given key.
func (cs *ConfigStore) SetProperty(key, value string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, file := range cs.files {
		for gi := range file.Groups {
			for pi := range file.Groups[gi].Properties {
				if file.Groups[gi].Properties[pi].Key == key {
					file.Groups[gi].Properties[pi].Value = value
					return nil
				}
			}
		}
	}
	return NewPropertyNotFoundError(key)
}

// ReplaceGroups swaps the named file's property groups wholesale, the shape
// the property merger produces.
func (cs *ConfigStore) ReplaceGroups(name string, groups []PropertyGroup) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	file, ok := cs.files[name]
	if !ok {
		return NewConfigNotFoundError(name)
	}
	file.Groups = groups
	return nil
}

// Save persists the named file's in-memory view back to its on-disk path in
// the format it was loaded from.
func (cs *ConfigStore) Save(name string) error {
	cs.mu.RLock()
	file, ok := cs.files[name]
	if !ok {
		cs.mu.RUnlock()
		return NewConfigNotFoundError(name)
	}
	shape := configFileShape{Groups: copyConfigFile(file).Groups}
	path := file.Path
	cs.mu.RUnlock()

	var (
		content []byte
		err     error
	)
	switch argus.DetectFormat(path) {
	case argus.FormatJSON:
		content, err = json.MarshalIndent(shape, "", "  ")
	default:
		content, err = yaml.Marshal(shape)
	}
	if err != nil {
		return NewConfigSaveError(path, err)
	}

	if err := os.WriteFile(path, content, 0o640); err != nil {
		return NewConfigSaveError(path, err)
	}

	cs.logger.Info("Configuration file saved", "file", name)
	return nil
}

// StartWatching begins watching the loaded files for external edits and
// reloading changed files into the in-memory view.
func (cs *ConfigStore) StartWatching() error {
	if !cs.watching.CompareAndSwap(false, true) {
		return NewConfigWatcherError("watcher already running", nil)
	}

	cs.mu.RLock()
	paths := make([]string, 0, len(cs.files))
	for _, file := range cs.files {
		paths = append(paths, file.Path)
	}
	cs.mu.RUnlock()

	watcher := argus.New(argus.Config{
		PollInterval:         cs.options.PollInterval,
		CacheTTL:             cs.options.CacheTTL,
		MaxWatchedFiles:      len(paths) + 1,
		Audit:                cs.options.Audit,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, path string) {
			cs.logger.Error("Configuration watch error", "error", err, "file", path)
		},
	})

	for _, path := range paths {
		if err := watcher.Watch(path, cs.handleConfigChange); err != nil {
			cs.watching.Store(false)
			return NewConfigWatcherError("failed to watch "+path, err)
		}
	}

	if err := watcher.Start(); err != nil {
		cs.watching.Store(false)
		return NewConfigWatcherError("failed to start watcher", err)
	}

	cs.watcher = watcher
	cs.logger.Info("Configuration watching started",
		"files", len(paths),
		"poll_interval", cs.options.PollInterval)
	return nil
}

// handleConfigChange reloads one changed file into the in-memory view.
func (cs *ConfigStore) handleConfigChange(event argus.ChangeEvent) {
	if event.IsDelete {
		cs.logger.Warn("Watched configuration file deleted", "file", event.Path)
		return
	}

	file, err := loadConfigFile(event.Path)
	if err != nil {
		cs.logger.Error("Configuration reload failed", "file", event.Path, "error", err)
		return
	}

	cs.mu.Lock()
	cs.files[file.Name] = file
	cs.mu.Unlock()

	cs.logger.Info("Configuration file reloaded", "file", file.Name)
}

// StopWatching stops the watcher. Idempotent; a store that never watched
// returns nil.
func (cs *ConfigStore) StopWatching() error {
	var stopErr error
	cs.stopOnce.Do(func() {
		if !cs.watching.CompareAndSwap(true, false) {
			return
		}
		if cs.watcher != nil {
			if err := cs.watcher.Stop(); err != nil {
				stopErr = NewConfigWatcherError("failed to stop watcher", err)
				return
			}
		}
		cs.logger.Info("Configuration watching stopped")
	})
	return stopErr
}

// copyConfigFile returns a deep copy of a loaded file.
func copyConfigFile(file *ConfigFile) ConfigFile {
	groups := make([]PropertyGroup, len(file.Groups))
	for i, group := range file.Groups {
		properties := make([]Property, len(group.Properties))
		copy(properties, group.Properties)
		groups[i] = PropertyGroup{Name: group.Name, Properties: properties}
	}
	return ConfigFile{Name: file.Name, Path: file.Path, Groups: groups}
}
