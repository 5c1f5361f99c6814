// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolchain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the toolchain package.
var (
	// ErrNotInstalled indicates the toolchain binary was not found in PATH.
	ErrNotInstalled = errors.New("toolchain not installed")

	// ErrTimeout indicates the toolchain exceeded its configured timeout.
	ErrTimeout = errors.New("toolchain timeout")

	// ErrFailed indicates the toolchain process failed without producing
	// diagnostic output.
	ErrFailed = errors.New("toolchain execution failed")

	// ErrInvalidInput indicates invalid input to an invoker function.
	ErrInvalidInput = errors.New("invalid input")
)

// InvokerError wraps errors from a toolchain invocation with context.
//
// Thread Safety: Immutable after creation.
type InvokerError struct {
	// Command is the toolchain executable that failed.
	Command string

	// Err is the underlying error.
	Err error

	// Output contains any captured output from the toolchain.
	Output string
}

// Error implements the error interface.
func (e *InvokerError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InvokerError) Unwrap() error {
	return e.Err
}

// NewInvokerError creates a new InvokerError.
func NewInvokerError(command string, err error) *InvokerError {
	return &InvokerError{Command: command, Err: err}
}

// WithOutput returns a copy of the error with captured output attached.
func (e *InvokerError) WithOutput(output string) *InvokerError {
	return &InvokerError{Command: e.Command, Err: e.Err, Output: output}
}
