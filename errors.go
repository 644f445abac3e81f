// errors.go: structured error definitions for the detection engine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"github.com/agilira/go-errors"
)

// Error codes for the detection engine
const (
	// Detector plugin errors (1000-1099)
	ErrCodeDetectorNotFound   = "DETECT_1001"
	ErrCodeDetectorCreation   = "DETECT_1002"
	ErrCodeDetectorDisposed   = "DETECT_1003"
	ErrCodeInvalidDetectorRef = "DETECT_1004"

	// Detection run errors (1100-1199)
	ErrCodeDetectionRuntime  = "DETECT_1101"
	ErrCodeDetectionCanceled = "DETECT_1102"
	ErrCodeDetectionRejected = "DETECT_1103"

	// Detection log errors (1200-1299)
	ErrCodeLogCreate = "DETECTLOG_1201"
	ErrCodeLogAccess = "DETECTLOG_1202"

	// Rule taxonomy errors (1300-1399)
	ErrCodeRuleFileNotFound = "RULES_1301"
	ErrCodeRuleFileParse    = "RULES_1302"

	// Configuration store errors (1700-1799)
	ErrCodeConfigLoad       = "CONFIG_1701"
	ErrCodeConfigParse      = "CONFIG_1702"
	ErrCodeConfigSave       = "CONFIG_1703"
	ErrCodeConfigNotFound   = "CONFIG_1704"
	ErrCodeConfigWatcher    = "CONFIG_1705"
	ErrCodePropertyNotFound = "CONFIG_1706"
)

// Detector plugin error constructors

func NewDetectorNotFoundError(ref string) *errors.Error {
	return errors.New(ErrCodeDetectorNotFound, "Detector not found").
		WithUserMessage("No registered detector implements the referenced module").
		WithContext("detector_ref", ref).
		WithSeverity("error")
}

func NewDetectorCreationError(ref string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDetectorCreation, "Detector creation failed").
		WithUserMessage("The detector factory failed to construct an instance").
		WithContext("detector_ref", ref).
		WithSeverity("error")
}

func NewDetectorDisposedError(ref string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDetectorDisposed, "Detector disposal failed").
		WithUserMessage("The detector instance failed to release its resources").
		WithContext("detector_ref", ref).
		WithSeverity("warning")
}

func NewInvalidDetectorRefError() *errors.Error {
	return errors.New(ErrCodeInvalidDetectorRef, "Invalid detector reference").
		WithUserMessage("Detector reference is required and cannot be empty").
		WithSeverity("error")
}

// Detection run error constructors

func NewDetectionRuntimeError(cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeDetectionRuntime, "Detection run failed").
			WithUserMessage("The detector reported a fatal failure during the run").
			WithSeverity("error")
	}
	return errors.New(ErrCodeDetectionRuntime, "Detection run failed").
		WithUserMessage("The detector reported a fatal failure during the run").
		WithSeverity("error")
}

func NewDetectionCanceledError() *errors.Error {
	return errors.New(ErrCodeDetectionCanceled, "Detection canceled").
		WithUserMessage("The detection run was canceled before completion").
		WithSeverity("warning")
}

func NewDetectionRejectedError(reason string) *errors.Error {
	return errors.New(ErrCodeDetectionRejected, "Detection rejected: "+reason).
		WithUserMessage("The detection run could not be started").
		WithSeverity("error")
}

// Detection log error constructors

func NewLogCreateError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeLogCreate, "Detection log creation failed").
		WithUserMessage("Failed to create the detection log file").
		WithContext("log_path", path).
		WithSeverity("error")
}

func NewLogAccessError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeLogAccess, "Detection log access failed").
		WithUserMessage("The detection log is held by the active run, retry shortly").
		WithContext("log_path", path).
		WithSeverity("warning").
		AsRetryable()
}

// Rule taxonomy error constructors

func NewRuleFileNotFoundError(path string) *errors.Error {
	return errors.New(ErrCodeRuleFileNotFound, "Rule file not found").
		WithUserMessage("The test-case rule taxonomy file could not be found").
		WithContext("rule_file", path).
		WithSeverity("error")
}

func NewRuleFileParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeRuleFileParse, "Rule file parse error").
		WithUserMessage("Failed to parse the test-case rule taxonomy file").
		WithContext("rule_file", path).
		WithSeverity("error")
}

// Configuration store error constructors

func NewConfigLoadError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigLoad, "Configuration load failed").
		WithUserMessage("Failed to load the test-suite configuration").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParse, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigSaveError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigSave, "Configuration save failed").
		WithUserMessage("Failed to persist configuration edits").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodeConfigNotFound, "Configuration file not found").
		WithUserMessage("No configuration file with the given name is loaded").
		WithContext("config_name", name).
		WithSeverity("error")
}

func NewConfigWatcherError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigWatcher, "Configuration watcher error: "+message).
		WithUserMessage("Configuration monitoring failed").
		WithSeverity("error")
}

func NewPropertyNotFoundError(key string) *errors.Error {
	return errors.New(ErrCodePropertyNotFound, "Property not found").
		WithUserMessage("No configuration property with the given key is loaded").
		WithContext("property_key", key).
		WithSeverity("error")
}
