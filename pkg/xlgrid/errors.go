package xlgrid

import (
	"errors"
	"fmt"
)

// ErrArgument indicates an invalid argument: a range crossing the format
// limits, a row or cell owned by another sheet, a table that is full.
var ErrArgument = errors.New("invalid argument")

// ErrArrayFormula indicates an edit that would split a multi-cell array
// formula.
var ErrArrayFormula = errors.New("cell is part of a multi-cell array formula")

// ErrUnsupported indicates an operation one of the two file formats does not
// carry.
var ErrUnsupported = errors.New("operation not supported for this format")

// ErrNotFound indicates a missing sheet, name, style or merged region.
var ErrNotFound = errors.New("not found")

// ErrInvalidFormat indicates input that is neither an OLE2 nor a zip
// spreadsheet container.
var ErrInvalidFormat = errors.New("invalid spreadsheet format")

// OperationError represents a failed workbook or sheet operation.
type OperationError struct {
	Sheet string
	Op    string // "createRow", "shiftRows", "addMergedRegion", ...
	Err   error
}

func (e *OperationError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on sheet %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// newOpError wraps a sentinel with a formatted detail message.
func newOpError(sheet, op string, sentinel error, format string, args ...any) *OperationError {
	return &OperationError{
		Sheet: sheet,
		Op:    op,
		Err:   fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}
