// testing_helpers_test.go: Shared test fixtures for the detection engine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDetector is a scriptable ValueDetector for tests.
type fakeDetector struct {
	mu sync.Mutex

	steps      []string
	prereqs    Prerequisites
	sufficient bool
	selected   []CaseSelectRule
	hidden     []string
	detected   map[string][]string

	// run overrides the default detection routine when set.
	run func(ctx context.Context, runID string, sink StepEventSink) (bool, error)

	receivedValues map[string]string
	closeCount     atomic.Int32
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{
		steps: []string{"Probe transport", "Negotiate version", "Query capabilities"},
		prereqs: Prerequisites{
			Title:   "Target SUT",
			Summary: "Connection settings for the system under test",
			Properties: []Property{
				{Key: "SutAddress", Name: "SUT address", Value: "192.168.0.1"},
				{Key: "SutPort", Name: "SUT port", Value: "4915", Choices: []string{"4915", "4916"}},
			},
		},
		sufficient: true,
		detected:   map[string][]string{},
	}
}

func (fd *fakeDetector) DetectionSteps() []string {
	return fd.steps
}

func (fd *fakeDetector) Prerequisites() Prerequisites {
	return fd.prereqs
}

func (fd *fakeDetector) SetPrerequisites(values map[string]string) bool {
	fd.mu.Lock()
	fd.receivedValues = values
	fd.mu.Unlock()
	return fd.sufficient
}

func (fd *fakeDetector) RunDetection(ctx context.Context, runID string, sink StepEventSink) (bool, error) {
	if fd.run != nil {
		return fd.run(ctx, runID, sink)
	}
	for i, step := range fd.steps {
		if ctx.Err() != nil {
			return false, nil
		}
		sink.OnStepEvent(runID, i, LogStyleDefault, "Detecting "+step)
		sink.OnStepEvent(runID, i, LogStyleStepPassed, step+" passed")
	}
	return true, nil
}

func (fd *fakeDetector) SelectedRules() []CaseSelectRule {
	return fd.selected
}

func (fd *fakeDetector) HiddenProperties(rules []CaseSelectRule) []string {
	return fd.hidden
}

func (fd *fakeDetector) DetectedProperties() map[string][]string {
	return fd.detected
}

func (fd *fakeDetector) Close() error {
	fd.closeCount.Add(1)
	return nil
}

func (fd *fakeDetector) lastReceivedValues() map[string]string {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.receivedValues
}

// registerFakeDetector registers a factory producing detectors from build and
// unregisters it when the test ends. It returns a counter of factory calls
// and an accessor for the most recently built detector.
func registerFakeDetector(t *testing.T, ref string, build func() *fakeDetector) (*atomic.Int32, func() *fakeDetector) {
	t.Helper()

	var created atomic.Int32
	var mu sync.Mutex
	var last *fakeDetector

	RegisterDetectorFactory(ref, func(logger Logger) (ValueDetector, error) {
		created.Add(1)
		fd := build()
		mu.Lock()
		last = fd
		mu.Unlock()
		return fd, nil
	})
	t.Cleanup(func() { UnregisterDetectorFactory(ref) })

	return &created, func() *fakeDetector {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

// waitForStatus polls the runner until it reaches the wanted status or the
// timeout elapses.
func waitForStatus(t *testing.T, r *DetectionRunner, want DetectionStatus, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if r.Status() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for status %v, current status %v", want, r.Status())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// newTestRunner builds a loader and runner against the given registered ref.
func newTestRunner(t *testing.T, ref string) *DetectionRunner {
	t.Helper()

	loader, err := NewDetectorLoader(ref, nil)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}
	runner, err := NewDetectionRunner(loader, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}
	return runner
}
