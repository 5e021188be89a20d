// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries a specific exit code out of a command. Fatal exits
// with Code instead of 1.
type ExitError struct {
	Code int
	Err  error
}

func (err *ExitError) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("exit status %d", err.Code)
	}
	return err.Err.Error()
}

func (err *ExitError) Unwrap() error { return err.Err }

// ExitCode returns Code.
func (err *ExitError) ExitCode() int { return err.Code }

// exitCoder is implemented by errors that choose their own exit status.
type exitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits. Use it in main() for
// errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes err to w and returns the exit code for it. The code is
// 1 unless some error in the chain has an ExitCode method. An
// ExitError with a nil Err prints nothing.
func report(w io.Writer, err error) int {
	code := 1
	var coder exitCoder
	if errors.As(err, &coder) {
		code = coder.ExitCode()
	}
	var exitError *ExitError
	if errors.As(err, &exitError) && exitError.Err == nil {
		return code
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return code
}
