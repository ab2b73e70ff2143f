package numbering

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCategory     = errors.New("invalid_category")
	ErrSequenceUnavailable = errors.New("sequence_unavailable")
	ErrStoreUnavailable    = errors.New("number_store_unavailable")
	ErrDegradedUniqueness  = errors.New("degraded_uniqueness")
	ErrStrategiesExhausted = errors.New("numbering_strategies_exhausted")
)

// StrategyError records why one generation strategy gave up.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("numbering strategy %s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a numbering configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid numbering config: %s %s", e.Field, e.Message)
}
