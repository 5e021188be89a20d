// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"errors"
	"fmt"
)

// ResultCode is a raw engine result code. Extended codes carry the
// primary code in their low byte.
type ResultCode int32

// Primary result codes.
const (
	ResultOK         ResultCode = 0
	ResultError      ResultCode = 1
	ResultInternal   ResultCode = 2
	ResultPerm       ResultCode = 3
	ResultAbort      ResultCode = 4
	ResultBusy       ResultCode = 5
	ResultLocked     ResultCode = 6
	ResultNoMem      ResultCode = 7
	ResultReadOnly   ResultCode = 8
	ResultInterrupt  ResultCode = 9
	ResultIOErr      ResultCode = 10
	ResultCorrupt    ResultCode = 11
	ResultNotFound   ResultCode = 12
	ResultFull       ResultCode = 13
	ResultCantOpen   ResultCode = 14
	ResultProtocol   ResultCode = 15
	ResultEmpty      ResultCode = 16
	ResultSchema     ResultCode = 17
	ResultTooBig     ResultCode = 18
	ResultConstraint ResultCode = 19
	ResultMismatch   ResultCode = 20
	ResultMisuse     ResultCode = 21
	ResultNoLFS      ResultCode = 22
	ResultAuth       ResultCode = 23
	ResultFormat     ResultCode = 24
	ResultRange      ResultCode = 25
	ResultNotADB     ResultCode = 26
	ResultNotice     ResultCode = 27
	ResultWarning    ResultCode = 28
	ResultRow        ResultCode = 100
	ResultDone       ResultCode = 101
)

// Primary strips the extended bits from c.
func (c ResultCode) Primary() ResultCode { return c & 0xff }

// Category decodes c into its symbolic category.
func (c ResultCode) Category() Category {
	if category, ok := categories[c.Primary()]; ok {
		return category
	}
	return CategoryUnknown
}

func (c ResultCode) String() string {
	return fmt.Sprintf("%s(%d)", c.Category(), int32(c))
}

// Category is the symbolic meaning of a primary result code.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryOK
	CategoryError
	CategoryInternal
	CategoryPerm
	CategoryAbort
	CategoryBusy
	CategoryLocked
	CategoryNoMem
	CategoryReadOnly
	CategoryInterrupt
	CategoryIOErr
	CategoryCorrupt
	CategoryNotFound
	CategoryFull
	CategoryCantOpen
	CategoryProtocol
	CategoryEmpty
	CategorySchema
	CategoryTooBig
	CategoryConstraint
	CategoryMismatch
	CategoryMisuse
	CategoryNoLFS
	CategoryAuth
	CategoryFormat
	CategoryRange
	CategoryNotADB
	CategoryNotice
	CategoryWarning
	CategoryRow
	CategoryDone
)

var categories = map[ResultCode]Category{
	ResultOK:         CategoryOK,
	ResultError:      CategoryError,
	ResultInternal:   CategoryInternal,
	ResultPerm:       CategoryPerm,
	ResultAbort:      CategoryAbort,
	ResultBusy:       CategoryBusy,
	ResultLocked:     CategoryLocked,
	ResultNoMem:      CategoryNoMem,
	ResultReadOnly:   CategoryReadOnly,
	ResultInterrupt:  CategoryInterrupt,
	ResultIOErr:      CategoryIOErr,
	ResultCorrupt:    CategoryCorrupt,
	ResultNotFound:   CategoryNotFound,
	ResultFull:       CategoryFull,
	ResultCantOpen:   CategoryCantOpen,
	ResultProtocol:   CategoryProtocol,
	ResultEmpty:      CategoryEmpty,
	ResultSchema:     CategorySchema,
	ResultTooBig:     CategoryTooBig,
	ResultConstraint: CategoryConstraint,
	ResultMismatch:   CategoryMismatch,
	ResultMisuse:     CategoryMisuse,
	ResultNoLFS:      CategoryNoLFS,
	ResultAuth:       CategoryAuth,
	ResultFormat:     CategoryFormat,
	ResultRange:      CategoryRange,
	ResultNotADB:     CategoryNotADB,
	ResultNotice:     CategoryNotice,
	ResultWarning:    CategoryWarning,
	ResultRow:        CategoryRow,
	ResultDone:       CategoryDone,
}

var categoryNames = [...]string{
	CategoryUnknown:    "unknown",
	CategoryOK:         "ok",
	CategoryError:      "error",
	CategoryInternal:   "internal",
	CategoryPerm:       "perm",
	CategoryAbort:      "abort",
	CategoryBusy:       "busy",
	CategoryLocked:     "locked",
	CategoryNoMem:      "nomem",
	CategoryReadOnly:   "readonly",
	CategoryInterrupt:  "interrupt",
	CategoryIOErr:      "ioerr",
	CategoryCorrupt:    "corrupt",
	CategoryNotFound:   "notfound",
	CategoryFull:       "full",
	CategoryCantOpen:   "cantopen",
	CategoryProtocol:   "protocol",
	CategoryEmpty:      "empty",
	CategorySchema:     "schema",
	CategoryTooBig:     "toobig",
	CategoryConstraint: "constraint",
	CategoryMismatch:   "mismatch",
	CategoryMisuse:     "misuse",
	CategoryNoLFS:      "nolfs",
	CategoryAuth:       "auth",
	CategoryFormat:     "format",
	CategoryRange:      "range",
	CategoryNotADB:     "notadb",
	CategoryNotice:     "notice",
	CategoryWarning:    "warning",
	CategoryRow:        "row",
	CategoryDone:       "done",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return categoryNames[CategoryUnknown]
}

// Error is a failure reported by the engine.
type Error struct {
	// Code is the (possibly extended) result code.
	Code ResultCode

	// Message is the engine's description of the failure.
	Message string

	// Op names the primitive that failed ("open", "prepare", "step").
	Op string
}

func (err *Error) Error() string {
	if err.Op == "" {
		return fmt.Sprintf("sqlite %s: %s", err.Code, err.Message)
	}
	return fmt.Sprintf("sqlite %s %s: %s", err.Op, err.Code, err.Message)
}

// Category decodes the error's result code.
func (err *Error) Category() Category { return err.Code.Category() }

// CodeOf returns the result code carried by err. It returns ResultOK
// for a nil error and ResultError for errors that did not come from
// the engine.
func CodeOf(err error) ResultCode {
	if err == nil {
		return ResultOK
	}
	var engineError *Error
	if errors.As(err, &engineError) {
		return engineError.Code
	}
	return ResultError
}

// IsRetryable reports whether err means another connection holds a
// conflicting lock and the operation may succeed if repeated.
func IsRetryable(err error) bool {
	switch CodeOf(err).Primary() {
	case ResultBusy, ResultLocked:
		return true
	default:
		return false
	}
}
