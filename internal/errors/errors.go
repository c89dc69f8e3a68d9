// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	// ErrNotFound is returned both for missing records and for records owned
	// by someone else, so callers cannot probe for foreign ids.
	ErrNotFound          = errors.New("not found")
	ErrNotPendingReview  = errors.New("trade is not pending review")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidTrade      = errors.New("invalid trade")
	ErrUnsupportedSource = errors.New("unsupported import source")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrDatabaseError     = errors.New("database error")
	ErrOwnerRequired     = errors.New("owner is required")
)

// TransitionError represents a refused status change on a plan, campaign or
// inbox row.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: cannot move from %s to %s: %s", e.Entity, e.ID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("%s %s: cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(entity, id, from, to, reason string) *TransitionError {
	return &TransitionError{
		Entity: entity,
		ID:     id,
		From:   from,
		To:     to,
		Reason: reason,
	}
}

// ParseError represents a brokerage export that could not be decoded.
type ParseError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse error [%s] row %d %s: %v", e.Source, e.Row, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error [%s]: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(source string, row int, column string, err error) *ParseError {
	return &ParseError{
		Source: source,
		Row:    row,
		Column: column,
		Err:    err,
	}
}

// TradeError represents a canonical trade that failed validation.
type TradeError struct {
	Errors []string
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("invalid trade: %v", e.Errors)
}

func (e *TradeError) Unwrap() error {
	return ErrInvalidTrade
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
