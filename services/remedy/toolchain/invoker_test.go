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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandInvokerValidation(t *testing.T) {
	_, err := NewCommandInvoker(Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCommandInvoker(Config{Command: "sh"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewCommandInvokerMissingBinary(t *testing.T) {
	_, err := NewCommandInvoker(Config{
		Command: "definitely-not-a-real-toolchain-binary",
		Dir:     t.TempDir(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInstalled)

	var invErr *InvokerError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "definitely-not-a-real-toolchain-binary", invErr.Command)
}

func TestCheckCapturesOutputAndExitCode(t *testing.T) {
	inv, err := NewCommandInvoker(Config{
		Command: "sh",
		Args:    []string{"-c", "echo 'a.ts(1,1): error TS1005: x'; exit 2"},
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)

	res, err := inv.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, res.Output, "TS1005")
}

func TestCheckCleanTree(t *testing.T) {
	inv, err := NewCommandInvoker(Config{
		Command: "true",
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)

	res, err := inv.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.Output)
}

func TestCheckTimeout(t *testing.T) {
	inv, err := NewCommandInvoker(Config{
		Command: "sleep",
		Args:    []string{"5"},
		Dir:     t.TempDir(),
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = inv.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCheckSilentFailure(t *testing.T) {
	inv, err := NewCommandInvoker(Config{
		Command: "false",
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)

	_, err = inv.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailed)
}

func TestCheckNilContext(t *testing.T) {
	inv, err := NewCommandInvoker(Config{Command: "true", Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = inv.Check(nil) //nolint:staticcheck // nil ctx contract
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInvokerErrorFormatting(t *testing.T) {
	err := NewInvokerError("tsc", ErrTimeout).WithOutput("partial output")
	assert.Contains(t, err.Error(), "tsc")
	assert.Contains(t, err.Error(), "partial output")
	assert.ErrorIs(t, err, ErrTimeout)
}
