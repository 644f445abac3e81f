// detector_loader.go: Detector factory registry and lazy memoized loading
//
// This file implements the plugin indirection for detection: detector
// implementations register a factory under a module reference, and the loader
// resolves that reference to a constructed instance on first use. The rest of
// the engine stays agnostic to how the instance was obtained.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"sync"
)

// DetectorFactory creates a new detector instance for a detection session.
type DetectorFactory func(logger Logger) (ValueDetector, error)

// detectorRegistry is the process-wide factory table, keyed by module reference.
var (
	detectorRegistry   = make(map[string]DetectorFactory)
	detectorRegistryMu sync.RWMutex
)

// RegisterDetectorFactory registers a detector factory under a module
// reference. Registering the same reference twice replaces the previous
// factory; protocol test suites register their detector once at startup.
func RegisterDetectorFactory(ref string, factory DetectorFactory) {
	detectorRegistryMu.Lock()
	defer detectorRegistryMu.Unlock()
	detectorRegistry[ref] = factory
}

// UnregisterDetectorFactory removes a previously registered factory.
func UnregisterDetectorFactory(ref string) {
	detectorRegistryMu.Lock()
	defer detectorRegistryMu.Unlock()
	delete(detectorRegistry, ref)
}

// lookupDetectorFactory resolves a module reference to its factory.
func lookupDetectorFactory(ref string) (DetectorFactory, bool) {
	detectorRegistryMu.RLock()
	defer detectorRegistryMu.RUnlock()
	factory, ok := detectorRegistry[ref]
	return factory, ok
}

// DetectorLoader resolves a module reference to a detector instance.
//
// Instantiation is lazy and memoized: the first call to Detector constructs
// the instance under a read-then-write double-checked pattern; all later
// calls, including from concurrent goroutines, return the same instance until
// Release disposes it. A missing factory is fatal for the detection session
// and surfaces as ErrCodeDetectorNotFound.
type DetectorLoader struct {
	ref    string
	logger Logger

	mu       sync.RWMutex
	instance ValueDetector
}

// NewDetectorLoader creates a loader for the given module reference.
func NewDetectorLoader(ref string, logger any) (*DetectorLoader, error) {
	if ref == "" {
		return nil, NewInvalidDetectorRefError()
	}
	return &DetectorLoader{
		ref:    ref,
		logger: NewLogger(logger),
	}, nil
}

// Ref returns the module reference this loader resolves.
func (dl *DetectorLoader) Ref() string {
	return dl.ref
}

// Detector returns the memoized detector instance, constructing it on first use.
func (dl *DetectorLoader) Detector() (ValueDetector, error) {
	dl.mu.RLock()
	instance := dl.instance
	dl.mu.RUnlock()
	if instance != nil {
		return instance, nil
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	// Double-check after acquiring the write lock
	if dl.instance != nil {
		return dl.instance, nil
	}

	factory, ok := lookupDetectorFactory(dl.ref)
	if !ok {
		return nil, NewDetectorNotFoundError(dl.ref)
	}

	instance, err := factory(dl.logger)
	if err != nil {
		return nil, NewDetectorCreationError(dl.ref, err)
	}
	if instance == nil {
		return nil, NewDetectorNotFoundError(dl.ref)
	}

	dl.instance = instance
	dl.logger.Info("Detector instantiated", "detector_ref", dl.ref)
	return instance, nil
}

// Release disposes the memoized instance, if any. The next Detector call
// constructs a fresh instance.
func (dl *DetectorLoader) Release() error {
	dl.mu.Lock()
	instance := dl.instance
	dl.instance = nil
	dl.mu.Unlock()

	if instance == nil {
		return nil
	}

	if err := instance.Close(); err != nil {
		dl.logger.Warn("Detector close failed", "detector_ref", dl.ref, "error", err)
		return NewDetectorDisposedError(dl.ref, err)
	}

	dl.logger.Debug("Detector released", "detector_ref", dl.ref)
	return nil
}
