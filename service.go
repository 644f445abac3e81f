// service.go: Caller-facing detection service facade
//
// This file wires the loader, prerequisite manager, runner, reconciler,
// merger and configuration store into the single surface the UI/service
// layer talks to.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"sort"
	"sync"
)

// ServiceConfig configures a detection service session.
type ServiceConfig struct {
	// DetectorRef is the module reference of the registered detector.
	DetectorRef string `json:"detector_ref" yaml:"detector_ref"`

	// RuleFile is the path to the static test-case rule taxonomy.
	// Optional; without it the service starts with an empty taxonomy and
	// rule groups must be supplied through SetRuleGroups.
	RuleFile string `json:"rule_file" yaml:"rule_file"`

	// ConfigDir is the directory of test-suite property files. Optional;
	// without it the service carries no configuration store.
	ConfigDir string `json:"config_dir" yaml:"config_dir"`

	// LogDir is the directory for per-run detection log files.
	LogDir string `json:"log_dir" yaml:"log_dir"`

	// ConfigStoreOptions customizes the configuration store. Zero value
	// means DefaultConfigStoreOptions.
	ConfigStoreOptions *ConfigStoreOptions `json:"config_store_options" yaml:"config_store_options"`

	// Logger receives operational events. Nil means silent.
	Logger Logger `json:"-" yaml:"-"`
}

// Service is the detection engine facade.
//
// One Service instance represents one detection session against one SUT. All
// methods are safe for concurrent use; status and log reads may be polled
// from any number of goroutines while a run is active.
type Service struct {
	logger  Logger
	loader  *DetectorLoader
	prereqs *PrerequisiteManager
	runner  *DetectionRunner
	config  *ConfigStore

	rulesMu    sync.RWMutex
	ruleGroups []RuleGroup
}

// NewService creates a detection session: resolves the detector factory,
// loads the rule taxonomy and the configuration store, and derives the
// initial step list.
//
// A missing detector factory or an unloadable configuration is fatal and
// propagates; every later failure is absorbed into the outcome model.
func NewService(config ServiceConfig) (*Service, error) {
	logger := NewLogger(config.Logger)

	loader, err := NewDetectorLoader(config.DetectorRef, logger)
	if err != nil {
		return nil, err
	}

	prereqs, err := NewPrerequisiteManager(loader, logger)
	if err != nil {
		return nil, err
	}

	runner, err := NewDetectionRunner(loader, config.LogDir, logger)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		logger:  logger,
		loader:  loader,
		prereqs: prereqs,
		runner:  runner,
	}

	if config.RuleFile != "" {
		groups, err := LoadRuleGroups(config.RuleFile)
		if err != nil {
			return nil, err
		}
		svc.ruleGroups = groups
	}

	if config.ConfigDir != "" {
		options := DefaultConfigStoreOptions()
		if config.ConfigStoreOptions != nil {
			options = *config.ConfigStoreOptions
		}
		store, err := NewConfigStore(config.ConfigDir, options, logger)
		if err != nil {
			return nil, err
		}
		svc.config = store
	}

	logger.Info("Detection service initialized",
		"detector_ref", config.DetectorRef,
		"rule_groups", len(svc.ruleGroups))
	return svc, nil
}

// ConfigStore returns the session's configuration store, or nil when the
// session was created without one.
func (s *Service) ConfigStore() *ConfigStore {
	return s.config
}

// SetRuleGroups replaces the static rule taxonomy used for reconciliation.
func (s *Service) SetRuleGroups(groups []RuleGroup) {
	s.rulesMu.Lock()
	s.ruleGroups = groups
	s.rulesMu.Unlock()
}

// RuleGroups returns the static rule taxonomy.
func (s *Service) RuleGroups() []RuleGroup {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()
	return s.ruleGroups
}

// Prerequisites returns the detector's current prerequisite view.
func (s *Service) Prerequisites() Prerequisites {
	return s.prereqs.Prerequisites()
}

// SetPrerequisites forwards caller-supplied prerequisite values to the
// detector and reports whether they are sufficient to proceed.
func (s *Service) SetPrerequisites(properties []Property) (bool, error) {
	return s.prereqs.SetPrerequisites(properties)
}

// DetectionSteps returns the detection step list with live statuses.
func (s *Service) DetectionSteps() []DetectingItem {
	return s.runner.DetectionSteps()
}

// StartDetection starts an asynchronous detection run. No-op while a run is
// already in progress.
func (s *Service) StartDetection() error {
	return s.runner.StartDetection()
}

// StopDetection cancels the active run and waits for the worker to exit.
func (s *Service) StopDetection() error {
	return s.runner.StopDetection()
}

// Reset returns the session to its initial state with a freshly loaded
// detector. Callers should stop an in-progress run first.
func (s *Service) Reset() error {
	if err := s.runner.Reset(); err != nil {
		return err
	}
	return s.prereqs.reload()
}

// DetectionOutcome returns the current status with any captured failure.
func (s *Service) DetectionOutcome() (DetectionStatus, error) {
	return s.runner.Outcome()
}

// DetectionLog returns the current run log text, empty before any run.
func (s *Service) DetectionLog() string {
	return s.runner.DetectionLog()
}

// SUTSummary summarizes the probed SUT: the prerequisite view headline plus
// the flattened detected property values.
func (s *Service) SUTSummary() (SUTSummary, error) {
	detector, err := s.loader.Detector()
	if err != nil {
		return SUTSummary{}, err
	}

	view := s.prereqs.Prerequisites()
	summary := SUTSummary{Title: view.Title, Summary: view.Summary}

	detected := detector.DetectedProperties()
	keys := make([]string, 0, len(detected))
	for key := range detected {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := detected[key]
		property := Property{Key: key}
		if len(values) > 0 {
			property.Value = values[0]
		}
		if len(values) > 1 {
			property.Choices = append([]string(nil), values...)
		}
		summary.Properties = append(summary.Properties, property)
	}
	return summary, nil
}

// SelectedRules returns the detector's flat case-selection findings.
func (s *Service) SelectedRules() ([]CaseSelectRule, error) {
	detector, err := s.loader.Detector()
	if err != nil {
		return nil, err
	}
	return detector.SelectedRules(), nil
}

// HiddenProperties returns the configuration property keys the detector
// marked irrelevant for its selected rules.
func (s *Service) HiddenProperties() ([]string, error) {
	detector, err := s.loader.Detector()
	if err != nil {
		return nil, err
	}
	return detector.HiddenProperties(detector.SelectedRules()), nil
}

// ApplyDetectionResult reconciles the detector's findings against the static
// rule taxonomy and merges detected property values into the caller-supplied
// property groups. Both results are full replacements for the caller's
// working copies.
func (s *Service) ApplyDetectionResult(groups []PropertyGroup) ([]RuleGroup, []PropertyGroup, error) {
	detector, err := s.loader.Detector()
	if err != nil {
		return nil, nil, err
	}

	selected := detector.SelectedRules()
	reconciled := ReconcileRuleGroups(s.RuleGroups(), selected)
	merged := MergeDetectedProperties(groups, detector.DetectedProperties())

	s.logger.Info("Detection result applied",
		"selected_rules", len(selected),
		"rule_groups", len(reconciled),
		"property_groups", len(merged))
	return reconciled, merged, nil
}

// Close releases session resources: the detector instance and the
// configuration watcher, if any.
func (s *Service) Close() error {
	var firstErr error
	if s.config != nil {
		if err := s.config.StopWatching(); err != nil {
			firstErr = err
		}
	}
	if err := s.loader.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
