// detection_log.go: Append-only per-run detection log
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/agilira/go-timecache"
)

const (
	// logTimestampLayout formats the per-line timestamp.
	logTimestampLayout = "2006-01-02 15:04:05.000"

	// logFileLayout is embedded in the log file name, one file per run.
	logFileLayout = "20060102_150405"

	// logStillProcessing is returned to readers when the file is
	// transiently inaccessible while the active run holds the writer.
	logStillProcessing = "Detection is still in progress, the log is not available yet. Please retry."
)

// DetectionLog is the append-only text log of one detection run.
//
// The write handle is exclusive to the run's worker goroutine; readers access
// the file by path and must tolerate a transiently locked file without
// failing. A new run creates a new file at a fresh timestamped path and the
// old file is retained for later retrieval.
type DetectionLog struct {
	path string

	mu   sync.RWMutex
	file *os.File
}

// NewDetectionLog creates the log file for a new run under dir, embedding the
// current timestamp in the file name.
func NewDetectionLog(dir string) (*DetectionLog, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, NewLogCreateError(dir, err)
		}
	}

	path := filepath.Join(dir, "detection_"+timecache.CachedTime().Format(logFileLayout)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, NewLogCreateError(path, err)
	}

	return &DetectionLog{path: path, file: file}, nil
}

// Path returns the log file path.
func (dl *DetectionLog) Path() string {
	return dl.path
}

// Append writes one timestamped line to the run log. Appends after Close are
// silently dropped; a stale worker unwinding past the end of its run must not
// fail on logging.
func (dl *DetectionLog) Append(message string) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file == nil {
		return
	}

	line := "[" + timecache.CachedTime().Format(logTimestampLayout) + "] " + message + "\n"
	_, _ = dl.file.WriteString(line)
}

// Close releases the write handle. Idempotent.
func (dl *DetectionLog) Close() {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file != nil {
		_ = dl.file.Close()
		dl.file = nil
	}
}

// Read returns the full current log contents, best effort. While the active
// writer holds the file a read may fail transiently; that case returns a
// retry notice rather than an error so status pollers always succeed.
func (dl *DetectionLog) Read() string {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	content, err := os.ReadFile(dl.path)
	if err != nil {
		return logStillProcessing
	}
	return string(content)
}
