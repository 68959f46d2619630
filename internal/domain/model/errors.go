package model

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrModelUnavailable = errors.New("model unavailable")
)

// InsufficientDataError reports that a component had too little input for one player.
type InsufficientDataError struct {
	Component string
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: %s", e.Component, e.Reason)
}

// Is matches ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// NewInsufficientData returns an InsufficientDataError.
func NewInsufficientData(component, reason string) error {
	return &InsufficientDataError{Component: component, Reason: reason}
}

// ModelUnavailableError reports a model family that failed to load or validate for a domain.
type ModelUnavailableError struct {
	Family string
	Domain Domain
	Err    error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model %s/%s unavailable", e.Family, e.Domain)
	}
	return fmt.Sprintf("model %s/%s unavailable: %v", e.Family, e.Domain, e.Err)
}

// Is matches ErrModelUnavailable.
func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}
