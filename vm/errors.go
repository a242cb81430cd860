package vm

import (
	"fmt"
)

// ErrorCode represents different types of simulator errors
type ErrorCode int

const (
	// Generic errors
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInternal

	// Configuration errors
	ErrCodeInvalidConfig
	ErrCodeUnknownPolicy
	ErrCodeUnknownProgram

	// Address space errors
	ErrCodeInvalidPageID
	ErrCodeInvalidFrameID
	ErrCodeMemoryMapFailed

	// Backing store errors
	ErrCodeDiskCreateFailed
	ErrCodeDiskReadFailed
	ErrCodeDiskWriteFailed
	ErrCodeCompressionFailed

	// Replacement engine errors
	ErrCodeInvariantViolation
)

// VMError represents a simulator error with context
type VMError struct {
	Code    ErrorCode
	Message string
	Op      string // Operation that failed
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *VMError) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *VMError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a specific error code
func (e *VMError) Is(target error) bool {
	if t, ok := target.(*VMError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewVMError creates a new simulator error
func NewVMError(code ErrorCode, op, message string, err error) *VMError {
	return &VMError{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Helper functions for common errors

func ErrInvalidConfig(op, message string) *VMError {
	return NewVMError(ErrCodeInvalidConfig, op, message, nil)
}

func ErrUnknownPolicy(op, name string) *VMError {
	return NewVMError(
		ErrCodeUnknownPolicy,
		op,
		fmt.Sprintf("unknown algorithm: %s", name),
		nil,
	)
}

func ErrUnknownProgram(op, name string) *VMError {
	return NewVMError(
		ErrCodeUnknownProgram,
		op,
		fmt.Sprintf("unknown program: %s", name),
		nil,
	)
}

func ErrInvalidPageID(op string, page, npages int) *VMError {
	return NewVMError(
		ErrCodeInvalidPageID,
		op,
		fmt.Sprintf("page %d out of range [0, %d)", page, npages),
		nil,
	)
}

func ErrInvalidFrameID(op string, frame, nframes int) *VMError {
	return NewVMError(
		ErrCodeInvalidFrameID,
		op,
		fmt.Sprintf("frame %d out of range [0, %d)", frame, nframes),
		nil,
	)
}

func ErrDiskCreate(op, path string, err error) *VMError {
	return NewVMError(
		ErrCodeDiskCreateFailed,
		op,
		fmt.Sprintf("couldn't create virtual disk %s", path),
		err,
	)
}

func ErrDiskRead(op string, block int, err error) *VMError {
	return NewVMError(
		ErrCodeDiskReadFailed,
		op,
		fmt.Sprintf("failed to read block %d", block),
		err,
	)
}

func ErrDiskWrite(op string, block int, err error) *VMError {
	return NewVMError(
		ErrCodeDiskWriteFailed,
		op,
		fmt.Sprintf("failed to write block %d", block),
		err,
	)
}

func ErrMemoryMap(op string, err error) *VMError {
	return NewVMError(
		ErrCodeMemoryMapFailed,
		op,
		"couldn't map physical memory",
		err,
	)
}

// invariantViolation panics with an ErrCodeInvariantViolation error
func invariantViolation(op, format string, args ...any) {
	panic(NewVMError(ErrCodeInvariantViolation, op, fmt.Sprintf(format, args...), nil))
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	if ve, ok := err.(*VMError); ok {
		return ve.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrCodeUnknown
func GetErrorCode(err error) ErrorCode {
	if ve, ok := err.(*VMError); ok {
		return ve.Code
	}
	return ErrCodeUnknown
}
