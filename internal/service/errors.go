package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("user rewards not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientBalance = errors.New("insufficient points")
	ErrConflict            = errors.New("concurrent redemption conflict")
	ErrAlreadyExists       = errors.New("user rewards already exist")
	ErrUnavailable         = errors.New("ledger store unavailable")
)

// InsufficientBalanceError reports both sides of a refused redemption.
type InsufficientBalanceError struct {
	Available int64
	Required  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient points. Available: %d, Required: %d", e.Available, e.Required)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
