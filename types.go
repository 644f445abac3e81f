// types.go: Common data types and structures for the detection engine
//
// This file contains the shared data models used throughout the detection
// system: step and run status enumerations, prerequisite and property views,
// and the test-case rule taxonomy. Keeping these separate from the interface
// definitions mirrors the rest of the library layout.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

// DetectingStatus represents the observable status of a single detection step.
//
// Steps are created once per detection run from the detector's declared step
// list and mutated in place as the run progresses:
//   - StepNotStart: Step has not been reached yet
//   - StepDetecting: Step is currently executing
//   - StepFinished: Step completed successfully
//   - StepFailed: Step executed and failed
//   - StepSkipped: Step was skipped by the detector
//   - StepNotFound: Probed capability was not found on the SUT
//   - StepPending: Step is waiting on an external condition
//   - StepCanceling: Cancellation was requested while this step was active
type DetectingStatus int

const (
	StepNotStart DetectingStatus = iota
	StepDetecting
	StepFinished
	StepFailed
	StepSkipped
	StepNotFound
	StepPending
	StepCanceling
)

// String returns a human-readable representation of the step status.
func (s DetectingStatus) String() string {
	switch s {
	case StepDetecting:
		return "detecting"
	case StepFinished:
		return "finished"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	case StepNotFound:
		return "not found"
	case StepPending:
		return "pending"
	case StepCanceling:
		return "canceling"
	default:
		return "not start"
	}
}

// DetectingItem is one step in the detection sequence with its live status.
type DetectingItem struct {
	Name   string          `json:"name"`
	Status DetectingStatus `json:"status"`
}

// DetectionStatus represents the lifecycle state of the detection runner.
//
// Transitions are monotonic within a run: NotStart -> InProgress -> a terminal
// state (Finished or Error). Reset is the only path back to NotStart.
type DetectionStatus int

const (
	DetectionNotStart DetectionStatus = iota
	DetectionInProgress
	DetectionFinished
	DetectionError
)

// String returns a human-readable representation of the detection status.
func (s DetectionStatus) String() string {
	switch s {
	case DetectionInProgress:
		return "in progress"
	case DetectionFinished:
		return "finished"
	case DetectionError:
		return "error"
	default:
		return "not start"
	}
}

// LogStyle classifies a step event reported by a detector. The runner maps
// each style to the resulting step status and a log entry.
type LogStyle int

const (
	// LogStyleDefault marks the step as actively detecting.
	LogStyleDefault LogStyle = iota
	// LogStyleError records a run-level error for the step.
	LogStyleError
	// LogStyleStepFailed marks the step as failed.
	LogStyleStepFailed
	// LogStyleStepSkipped marks the step as skipped.
	LogStyleStepSkipped
	// LogStyleStepNotFound marks the probed capability as absent.
	LogStyleStepNotFound
	// LogStyleStepPassed marks the step as finished successfully.
	LogStyleStepPassed
)

// Property is a single named configuration entry. Choices, when present, is a
// fixed value set and a hint that the entry renders as a drop-down rather than
// free text.
type Property struct {
	Key     string   `json:"key" yaml:"key"`
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Value   string   `json:"value" yaml:"value"`
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// PropertyGroup is a named group of configuration entries.
type PropertyGroup struct {
	Name       string     `json:"name" yaml:"name"`
	Properties []Property `json:"properties" yaml:"properties"`
}

// Prerequisites is the detector-declared view of the inputs it needs before a
// detection run can start.
type Prerequisites struct {
	Title      string     `json:"title"`
	Summary    string     `json:"summary"`
	Properties []Property `json:"properties"`
}

// SelectionStatus represents the selection state of a rule tree node after
// reconciliation against detector findings.
type SelectionStatus int

const (
	RuleUnselected SelectionStatus = iota
	RuleSelected
	// RulePartial indicates an interior node with a strict subset of its
	// children selected.
	RulePartial
)

// String returns a human-readable representation of the selection status.
func (s SelectionStatus) String() string {
	switch s {
	case RuleSelected:
		return "selected"
	case RulePartial:
		return "partial"
	default:
		return "unselected"
	}
}

// CaseSelectRule is a flat selection record emitted by a detector: a dotted
// hierarchical rule name plus its selection status and category tags. Consumed
// read-only by the reconciler.
type CaseSelectRule struct {
	Name       string          `json:"name"`
	Status     SelectionStatus `json:"status"`
	Categories []string        `json:"categories,omitempty"`
}

// Rule is a node of the hierarchical test-case selection taxonomy. Rules is
// nil for leaves. Reconciliation builds a fresh tree on every pass; nodes are
// never mutated outside that pass.
type Rule struct {
	Name        string          `json:"name" yaml:"name"`
	DisplayName string          `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Categories  []string        `json:"categories,omitempty" yaml:"categories,omitempty"`
	Status      SelectionStatus `json:"status" yaml:"-"`
	Rules       []*Rule         `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// RuleGroup is a top-level named collection of rules.
type RuleGroup struct {
	Name  string  `json:"name" yaml:"name"`
	Rules []*Rule `json:"rules" yaml:"rules"`
}

// SUTSummary describes the probed System Under Test after a detection run:
// the detector's prerequisite view headline plus the flattened detected
// property values.
type SUTSummary struct {
	Title      string     `json:"title"`
	Summary    string     `json:"summary"`
	Properties []Property `json:"properties"`
}
