package sheetmap

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error values shared across the package
var (
	// ErrEmptySheet indicates a sheet snapshot with no headers
	ErrEmptySheet = errors.New("sheetmap: sheet has no headers")

	// ErrUnknownSheet indicates an operation addressed a sheet the session does not hold
	ErrUnknownSheet = errors.New("sheetmap: unknown sheet")

	// ErrUnknownHeader indicates an operation addressed a header the sheet does not hold
	ErrUnknownHeader = errors.New("sheetmap: unknown header")

	// ErrUnknownTable indicates a selected table that exists neither in the
	// schema nor as a new-table sentinel
	ErrUnknownTable = errors.New("sheetmap: unknown table")

	// ErrDuplicateSheet indicates two snapshots sharing a sheet name in one analysis batch
	ErrDuplicateSheet = errors.New("sheetmap: duplicate sheet name")

	// ErrSessionReset indicates a result arrived after the session was reset
	ErrSessionReset = errors.New("sheetmap: session was reset")

	// ErrStaleAnalysis indicates a result was superseded by a later request
	// for the same sheet
	ErrStaleAnalysis = errors.New("sheetmap: analysis superseded")

	// ErrContextCancelled indicates context was cancelled
	ErrContextCancelled = errors.New("sheetmap: context cancelled")
)

// ErrorContext names the workflow position an error occurred at, so a
// failure surfaced from deep inside a session still tells the caller
// which operation, sheet, table, or header was involved. The sentinel
// stays wrapped and reachable through errors.Is.
type ErrorContext struct {
	Operation string
	SheetName string
	TableName string
	Header    string
	Details   string
}

// NewErrorContext starts an error context for one operation on one sheet.
func NewErrorContext(operation, sheetName string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		SheetName: sheetName,
	}
}

// WithTable records the destination table involved.
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithHeader records the spreadsheet header involved.
func (ec *ErrorContext) WithHeader(header string) *ErrorContext {
	ec.Header = header
	return ec
}

// WithDetails records free-text detail about the failure.
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error renders the context around a base error, wrapping it so sentinel
// checks keep working.
func (ec *ErrorContext) Error(baseErr error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", ec.Operation)
	if ec.SheetName != "" {
		fmt.Fprintf(&b, " on sheet %q", ec.SheetName)
	}
	if ec.TableName != "" {
		fmt.Fprintf(&b, " (table %q)", ec.TableName)
	}
	if ec.Header != "" {
		fmt.Fprintf(&b, " (header %q)", ec.Header)
	}
	if ec.Details != "" {
		fmt.Fprintf(&b, ": %s", ec.Details)
	}
	if baseErr != nil {
		return fmt.Errorf("%s: %w", b.String(), baseErr)
	}
	return errors.New(b.String())
}
