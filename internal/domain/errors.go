package domain

import "errors"

// Scenario scoring errors. Callers classify with errors.Is.
var (
	// ErrUnknownAnalog is returned when an analog id is not registered.
	// It is a user error (HTTP 400), never a fault.
	ErrUnknownAnalog = errors.New("unknown analog")

	// ErrDataUnavailable is returned by a price provider when it cannot
	// produce a series for a ticker over a window.
	ErrDataUnavailable = errors.New("historical data unavailable")

	// ErrInsufficientData is returned by the scoring function when a
	// holding or benchmark series cannot be constructed.
	ErrInsufficientData = errors.New("insufficient historical data")

	// ErrStore wraps every persistence fault of the score cache.
	ErrStore = errors.New("score store error")

	// ErrComputationFailed is returned when every parallel scoring failed.
	ErrComputationFailed = errors.New("all portfolio computations failed")

	// ErrInvalidCatalog is returned when a static catalog fails validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
