// detector.go: Detector plugin capability contract
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"context"
)

// StepEventSink receives step progress events from a running detector.
//
// The detector tags every event with the run instance id it was handed at
// start; the sink validates that identity before applying the update, so a
// late event from a canceled run can never corrupt the state of a newer run.
type StepEventSink interface {
	// OnStepEvent reports progress for one detection step.
	//
	// runID is the run instance identity, step is the zero-based index into
	// the detector's declared step list, style classifies the event, and
	// message is the human-readable log text for the run log. Out-of-range
	// step indexes are ignored.
	OnStepEvent(runID string, step int, style LogStyle, message string)
}

// StepEventFunc adapts a plain function to the StepEventSink interface.
type StepEventFunc func(runID string, step int, style LogStyle, message string)

// OnStepEvent implements StepEventSink.
func (f StepEventFunc) OnStepEvent(runID string, step int, style LogStyle, message string) {
	f(runID, step, style, message)
}

// ValueDetector is the protocol-specific detection capability contract.
//
// A detector probes the System Under Test to discover its supported
// feature/version matrix. Implementations are registered through
// RegisterDetectorFactory and instantiated by the DetectorLoader; the engine
// is agnostic to how an instance was obtained.
//
// One instance is a singleton per detection session: created once, reused
// across prerequisite queries, rule queries and the run itself, and disposed
// via Close on session reset. Implementations need not be safe for concurrent
// use; the engine serializes access.
type ValueDetector interface {
	// DetectionSteps returns the ordered display names of the detection
	// steps this detector performs. The step count is fixed for the
	// lifetime of the instance.
	DetectionSteps() []string

	// Prerequisites returns the inputs the detector needs before a run,
	// with current values and optional fixed choice sets.
	Prerequisites() Prerequisites

	// SetPrerequisites accepts caller-supplied name/value pairs and reports
	// whether they are sufficient to proceed with detection.
	SetPrerequisites(values map[string]string) bool

	// RunDetection executes the detection sequence synchronously to
	// completion, honoring ctx for cooperative cancellation and reporting
	// per-step progress through sink tagged with runID. It returns whether
	// detection succeeded; a returned error signals fatal failure.
	RunDetection(ctx context.Context, runID string, sink StepEventSink) (bool, error)

	// SelectedRules returns the flat list of case-selection rules the
	// detector derived from its findings.
	SelectedRules() []CaseSelectRule

	// HiddenProperties returns the configuration property keys that should
	// be hidden from the user given the selected rules.
	HiddenProperties(rules []CaseSelectRule) []string

	// DetectedProperties returns the property values observed on the SUT,
	// keyed by configuration property key. A key with multiple values
	// becomes a choice set during the merge.
	DetectedProperties() map[string][]string

	// Close releases any resources held by the detector.
	// Safe to call multiple times.
	Close() error
}
