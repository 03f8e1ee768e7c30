package runner

import (
	"fmt"
)

// ErrorKind classifies which part of a test run failed.
type ErrorKind string

const (
	KindDevice     ErrorKind = "device"     // Device unreachable or adb failure
	KindApp        ErrorKind = "app"        // App failed to launch or stop
	KindAction     ErrorKind = "action"     // Input action could not be executed
	KindCapture    ErrorKind = "capture"    // Screenshot capture failed
	KindComparison ErrorKind = "comparison" // Image comparison could not run
)

// RunError is a structured error with a kind for reporting.
type RunError struct {
	Kind    ErrorKind
	Code    string // Machine-readable code: no_device, launch_failed, etc.
	Message string // Human-readable message
	Cause   error  // Underlying error
}

// Error implements the error interface
func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *RunError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause
func (e *RunError) WithCause(cause error) *RunError {
	return &RunError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *RunError) WithMessage(msg string) *RunError {
	return &RunError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: msg,
		Cause:   e.Cause,
	}
}

// Predefined errors
var (
	ErrNoDevice = &RunError{
		Kind:    KindDevice,
		Code:    "no_device",
		Message: "no device connected or device not responding",
	}
	ErrLaunchFailed = &RunError{
		Kind:    KindApp,
		Code:    "launch_failed",
		Message: "failed to launch app",
	}
	ErrActionFailed = &RunError{
		Kind:    KindAction,
		Code:    "action_failed",
		Message: "failed to execute action",
	}
	ErrCaptureFailed = &RunError{
		Kind:    KindCapture,
		Code:    "capture_failed",
		Message: "failed to capture screenshot",
	}
	ErrCompareFailed = &RunError{
		Kind:    KindComparison,
		Code:    "compare_failed",
		Message: "failed to compare screenshot against reference",
	}
)
