package tariff

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for caller mistakes: custom percentages
	// that do not sum to 100, or a custom mode without its parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingTOUData is returned when a time-of-use plan is calculated
	// with no resolvable segment data. The calculator's estimation fallback
	// normally makes this unreachable.
	ErrMissingTOUData = errors.New("missing time-of-use consumption data")
)

// InvalidPercentError reports custom estimation percentages that do not sum
// to 100 within the accepted tolerance.
type InvalidPercentError struct {
	Sum float64
}

func (e *InvalidPercentError) Error() string {
	return fmt.Sprintf("custom percentages must sum to 100, got %.2f", e.Sum)
}

func (e *InvalidPercentError) Unwrap() error { return ErrInvalidArgument }

// MissingTOUDataError names the plan that was reached without segment data.
type MissingTOUDataError struct {
	PlanID string
}

func (e *MissingTOUDataError) Error() string {
	return fmt.Sprintf("plan %s requires time-of-use consumption data", e.PlanID)
}

func (e *MissingTOUDataError) Unwrap() error { return ErrMissingTOUData }
