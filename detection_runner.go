// detection_runner.go: Asynchronous detection lifecycle state machine
//
// This file owns the detection run lifecycle: start/stop/reset, cooperative
// cancellation, per-step status tracking and the append-only run log. One
// background goroutine executes the detector per run; every other operation
// is synchronous and may be called concurrently from any number of caller
// goroutines while a run is active.
//
// Shared mutable state is guarded by one reader-writer lock per logical
// resource (status, step list, run pointer) rather than a single global lock,
// so unrelated reads do not contend. Per-run correlated state (step index,
// log writer, done flag) lives on the run context and is keyed by the run's
// instance identity, so a stale worker from a canceled run cannot write into
// the current run's state even while it is still unwinding.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// joinPollInterval paces the synchronous cancellation join.
	joinPollInterval = 10 * time.Millisecond

	// stopJoinTimeout bounds how long StopDetection waits for the worker
	// to acknowledge cancellation before giving up.
	stopJoinTimeout = 30 * time.Second

	// resetJoinTimeout bounds how long Reset waits for an unstopped worker
	// before proceeding and treating it as orphaned.
	resetJoinTimeout = 5 * time.Second
)

// detectionRun is the per-run context: one instance per StartDetection call.
// All state on it is correlated by the run's instance identity.
type detectionRun struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	log    *DetectionLog

	stepMu    sync.RWMutex
	stepIndex int

	done atomic.Bool
}

// currentStep returns the run's current step index.
func (run *detectionRun) currentStep() int {
	run.stepMu.RLock()
	defer run.stepMu.RUnlock()
	return run.stepIndex
}

// advanceStep moves the current step pointer forward. The pointer is
// non-decreasing within a run.
func (run *detectionRun) advanceStep(step int) {
	run.stepMu.Lock()
	if step > run.stepIndex {
		run.stepIndex = step
	}
	run.stepMu.Unlock()
}

// DetectionRunner drives the asynchronous detection lifecycle.
//
// States: NotStart -> InProgress -> {Finished | Error}; Reset returns to
// NotStart. StartDetection while InProgress is a no-op. Exactly one run is
// live at a time; callbacks tagged with a prior run's identity are discarded.
type DetectionRunner struct {
	loader *DetectorLoader
	logger Logger
	logDir string

	statusMu sync.RWMutex
	status   DetectionStatus
	lastErr  error

	stepsMu sync.RWMutex
	steps   []*DetectingItem

	runMu sync.RWMutex
	run   *detectionRun
}

// NewDetectionRunner creates a runner for the loader's detector, deriving the
// step list from the detector's declared steps. Log files for each run are
// written under logDir.
func NewDetectionRunner(loader *DetectorLoader, logDir string, logger any) (*DetectionRunner, error) {
	r := &DetectionRunner{
		loader: loader,
		logger: NewLogger(logger),
		logDir: logDir,
		status: DetectionNotStart,
	}
	if err := r.reloadSteps(); err != nil {
		return nil, err
	}
	return r, nil
}

// reloadSteps rebuilds the step list from the detector's declared steps.
func (r *DetectionRunner) reloadSteps() error {
	detector, err := r.loader.Detector()
	if err != nil {
		return err
	}

	names := detector.DetectionSteps()
	steps := make([]*DetectingItem, len(names))
	for i, name := range names {
		steps[i] = &DetectingItem{Name: name, Status: StepNotStart}
	}

	r.stepsMu.Lock()
	r.steps = steps
	r.stepsMu.Unlock()
	return nil
}

// Status returns the current detection status.
func (r *DetectionRunner) Status() DetectionStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// Outcome returns a snapshot pairing the current status with any captured
// failure detail. Always succeeds; run-time failures are absorbed into this
// model rather than thrown at pollers.
func (r *DetectionRunner) Outcome() (DetectionStatus, error) {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status, r.lastErr
}

// DetectionSteps returns a snapshot of the step list with live statuses.
func (r *DetectionRunner) DetectionSteps() []DetectingItem {
	r.stepsMu.RLock()
	defer r.stepsMu.RUnlock()

	steps := make([]DetectingItem, len(r.steps))
	for i, step := range r.steps {
		steps[i] = *step
	}
	return steps
}

// DetectionLog returns the full current run log contents, or the empty string
// when no run has ever started. A transiently locked file yields a best-effort
// retry notice, never an error.
func (r *DetectionRunner) DetectionLog() string {
	r.runMu.RLock()
	run := r.run
	r.runMu.RUnlock()

	if run == nil {
		return ""
	}
	return run.log.Read()
}

// StartDetection creates a fresh run context and schedules the detector's
// detection routine on a background goroutine. Calling it while a run is in
// progress is a no-op.
func (r *DetectionRunner) StartDetection() error {
	r.statusMu.Lock()
	if r.status == DetectionInProgress {
		r.statusMu.Unlock()
		r.logger.Debug("Detection already in progress, start ignored")
		return nil
	}
	r.status = DetectionInProgress
	r.lastErr = nil
	r.statusMu.Unlock()

	detector, err := r.loader.Detector()
	if err != nil {
		r.setStatus(DetectionNotStart, nil)
		return err
	}

	if err := r.reloadSteps(); err != nil {
		r.setStatus(DetectionNotStart, nil)
		return err
	}

	log, err := NewDetectionLog(r.logDir)
	if err != nil {
		r.setStatus(DetectionNotStart, nil)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &detectionRun{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}

	r.runMu.Lock()
	r.run = run
	r.runMu.Unlock()

	r.logger.Info("Detection started",
		"run_id", run.id,
		"detector_ref", r.loader.Ref(),
		"log_path", log.Path())
	log.Append("Detection started")

	go r.runDetection(run, detector)
	return nil
}

// runDetection executes the detector on the run's worker goroutine and
// translates its outcome into the status model. Failures are captured here,
// never propagated; the worker always exits cleanly.
func (r *DetectionRunner) runDetection(run *detectionRun, detector ValueDetector) {
	defer func() {
		if rec := recover(); rec != nil {
			r.completeRun(run, NewDetectionRuntimeError(fmt.Errorf("detector panic: %v", rec)))
		}
		run.log.Close()
		run.done.Store(true)
	}()

	ok, err := detector.RunDetection(run.ctx, run.id, r)

	switch {
	case run.ctx.Err() != nil:
		run.log.Append("Detection canceled")
		r.completeRun(run, NewDetectionCanceledError())
	case err != nil:
		run.log.Append("Detection failed: " + err.Error())
		r.completeRun(run, NewDetectionRuntimeError(err))
	case !ok:
		run.log.Append("Detection failed")
		r.completeRun(run, NewDetectionRuntimeError(nil))
	default:
		run.log.Append("Detection finished")
		r.completeRun(run, nil)
	}
}

// completeRun applies the run's terminal outcome. A run that is no longer
// current must not touch shared state; its outcome is discarded.
func (r *DetectionRunner) completeRun(run *detectionRun, runErr error) {
	r.runMu.RLock()
	current := r.run != nil && r.run.id == run.id
	r.runMu.RUnlock()
	if !current {
		r.logger.Debug("Discarding outcome of stale run", "run_id", run.id)
		return
	}

	if runErr == nil {
		r.setStatus(DetectionFinished, nil)
		r.logger.Info("Detection finished", "run_id", run.id)
		return
	}

	r.markRemainingFailed(run.currentStep())
	r.setStatus(DetectionError, runErr)
	r.logger.Warn("Detection ended with error", "run_id", run.id, "error", runErr)
}

// markRemainingFailed marks every step at or after the given index that never
// completed as Failed.
func (r *DetectionRunner) markRemainingFailed(from int) {
	r.stepsMu.Lock()
	defer r.stepsMu.Unlock()

	if from < 0 {
		from = 0
	}
	for i := from; i < len(r.steps); i++ {
		switch r.steps[i].Status {
		case StepFinished, StepFailed, StepSkipped, StepNotFound:
		default:
			r.steps[i].Status = StepFailed
		}
	}
}

// setStatus updates the process-wide detection status and failure detail.
func (r *DetectionRunner) setStatus(status DetectionStatus, err error) {
	r.statusMu.Lock()
	r.status = status
	r.lastErr = err
	r.statusMu.Unlock()
}

// OnStepEvent implements StepEventSink. Events tagged with a run identity
// other than the currently live run are discarded; this guards a canceled
// run's late callbacks from corrupting the next run's state.
func (r *DetectionRunner) OnStepEvent(runID string, step int, style LogStyle, message string) {
	r.runMu.RLock()
	run := r.run
	r.runMu.RUnlock()

	if run == nil || run.id != runID {
		r.logger.Debug("Discarding stale step event", "run_id", runID, "step", step)
		return
	}

	run.log.Append(message)

	r.stepsMu.Lock()
	if step >= 0 && step < len(r.steps) {
		r.steps[step].Status = stepStatusForStyle(style)
		r.stepsMu.Unlock()
		run.advanceStep(step)
		return
	}
	r.stepsMu.Unlock()
}

// stepStatusForStyle maps a detector log style to the resulting step status.
func stepStatusForStyle(style LogStyle) DetectingStatus {
	switch style {
	case LogStyleDefault:
		return StepDetecting
	case LogStyleError, LogStyleStepFailed:
		return StepFailed
	case LogStyleStepSkipped:
		return StepSkipped
	case LogStyleStepNotFound:
		return StepNotFound
	default:
		return StepFinished
	}
}

// StopDetection requests cancellation of the active run and blocks until the
// worker acknowledges it and exits. The join polls the worker's done flag at
// a bounded interval; an unresponsive worker is abandoned after a timeout.
// Acceptable for a manual, human-triggered stop.
func (r *DetectionRunner) StopDetection() error {
	r.statusMu.RLock()
	inProgress := r.status == DetectionInProgress
	r.statusMu.RUnlock()
	if !inProgress {
		return nil
	}

	r.runMu.RLock()
	run := r.run
	r.runMu.RUnlock()
	if run == nil {
		return nil
	}

	r.markStepCanceling(run.currentStep())
	run.log.Append("Cancellation requested")
	run.cancel()

	deadline := time.Now().Add(stopJoinTimeout)
	for !run.done.Load() {
		if time.Now().After(deadline) {
			r.logger.Warn("Detection worker did not acknowledge cancellation",
				"run_id", run.id, "timeout", stopJoinTimeout)
			return NewDetectionRejectedError("worker did not acknowledge cancellation")
		}
		time.Sleep(joinPollInterval)
	}

	r.logger.Info("Detection stopped", "run_id", run.id)
	return nil
}

// markStepCanceling marks the step at the given index as Canceling.
func (r *DetectionRunner) markStepCanceling(index int) {
	r.stepsMu.Lock()
	defer r.stepsMu.Unlock()
	if index >= 0 && index < len(r.steps) {
		r.steps[index].Status = StepCanceling
	}
}

// Reset returns the runner to NotStart: the log writer is released, the
// detector instance is disposed and re-resolved, the step list is re-derived
// from the fresh detector and run-scoped bookkeeping is cleared.
//
// Reset is intended for NotStart or a terminal state. When a worker is still
// running (Reset without a prior Stop), the wait for it is bounded; after the
// timeout the worker is treated as orphaned and the stale-run identity guard
// keeps it from touching the fresh session's state.
func (r *DetectionRunner) Reset() error {
	r.runMu.Lock()
	run := r.run
	r.run = nil
	r.runMu.Unlock()

	if run != nil {
		run.cancel()
		deadline := time.Now().Add(resetJoinTimeout)
		for !run.done.Load() {
			if time.Now().After(deadline) {
				r.logger.Warn("Orphaning detection worker on reset", "run_id", run.id)
				break
			}
			time.Sleep(joinPollInterval)
		}
		run.log.Close()
	}

	if err := r.loader.Release(); err != nil {
		r.logger.Warn("Detector release failed during reset", "error", err)
	}

	if err := r.reloadSteps(); err != nil {
		return err
	}

	r.setStatus(DetectionNotStart, nil)
	r.logger.Info("Detection runner reset", "detector_ref", r.loader.Ref())
	return nil
}
