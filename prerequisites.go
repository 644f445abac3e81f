// prerequisites.go: Prerequisite collection for detection sessions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"sync"
)

// PrerequisiteManager exposes and collects the name/value/choice inputs a
// detector needs before detection can run.
//
// The view is seeded from the detector at session initialization and
// overwritten on every SetPrerequisites call, whether or not the detector
// accepts the supplied values, so the caller always re-renders the attempted
// input.
type PrerequisiteManager struct {
	loader *DetectorLoader
	logger Logger

	mu   sync.RWMutex
	view Prerequisites
}

// NewPrerequisiteManager creates a prerequisite manager seeded from the
// loader's detector.
func NewPrerequisiteManager(loader *DetectorLoader, logger any) (*PrerequisiteManager, error) {
	pm := &PrerequisiteManager{
		loader: loader,
		logger: NewLogger(logger),
	}
	if err := pm.reload(); err != nil {
		return nil, err
	}
	return pm, nil
}

// reload re-seeds the view from a (possibly freshly constructed) detector.
func (pm *PrerequisiteManager) reload() error {
	detector, err := pm.loader.Detector()
	if err != nil {
		return err
	}

	view := detector.Prerequisites()

	pm.mu.Lock()
	pm.view = view
	pm.mu.Unlock()
	return nil
}

// Prerequisites returns a snapshot of the current prerequisite view.
func (pm *PrerequisiteManager) Prerequisites() Prerequisites {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	snapshot := pm.view
	snapshot.Properties = make([]Property, len(pm.view.Properties))
	copy(snapshot.Properties, pm.view.Properties)
	return snapshot
}

// SetPrerequisites stores the caller-supplied property values, forwards them
// to the detector, and reports whether the detector considers them sufficient
// to proceed.
//
// The stored view is overwritten even when the detector rejects the values.
func (pm *PrerequisiteManager) SetPrerequisites(properties []Property) (bool, error) {
	detector, err := pm.loader.Detector()
	if err != nil {
		return false, err
	}

	stored := make([]Property, len(properties))
	copy(stored, properties)

	pm.mu.Lock()
	pm.view.Properties = stored
	pm.mu.Unlock()

	values := make(map[string]string, len(properties))
	for _, p := range properties {
		values[p.Key] = p.Value
	}

	sufficient := detector.SetPrerequisites(values)
	if !sufficient {
		pm.logger.Warn("Detector rejected prerequisite values",
			"detector_ref", pm.loader.Ref(),
			"property_count", len(properties))
	}
	return sufficient, nil
}
