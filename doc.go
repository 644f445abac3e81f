// Package autodetect provides an automated protocol-compliance detection engine
// for test suites. It probes a System Under Test (SUT) through a protocol-specific
// detector plugin, tracks per-step progress of the asynchronous detection run,
// persists an append-only run log, supports cooperative cancellation, and
// reconciles the detector's findings against a static test-case rule taxonomy to
// compute case selection and configuration pre-fill values.
//
// Key Features:
//   - In-process detector plugin registry with lazy, memoized instantiation
//   - Asynchronous detection lifecycle (start/stop/reset) with per-step status
//   - Stale-run callback suppression keyed by run instance identity
//   - Fine-grained reader-writer locking per logical resource
//   - Rule tree reconciliation (Selected/Partial/Unselected propagation)
//   - Detected-property merge back into configuration property groups
//   - Timestamped append-only detection log, readable while a run is active
//   - Hot-reloadable configuration store backed by Argus
//
// Basic Usage:
//
//	// Register a detector factory for the protocol under test
//	autodetect.RegisterDetectorFactory("rdp-detector", NewRDPDetector)
//
//	// Create the detection service
//	svc, err := autodetect.NewService(autodetect.ServiceConfig{
//		DetectorRef: "rdp-detector",
//		RuleFile:    "rules/testcases.yaml",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Collect prerequisites, then run detection
//	svc.SetPrerequisites(props)
//	svc.StartDetection()
//
//	// Poll progress from any goroutine
//	status, _ := svc.DetectionOutcome()
//	steps := svc.DetectionSteps()
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package autodetect
