package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	ErrInsufficientAssets    = errors.New("insufficient assets")
	ErrInsufficientData      = errors.New("insufficient data")
	ErrOptimizationFailed    = errors.New("optimization failed")
	ErrInfeasibleConstraints = errors.New("infeasible constraints")
	ErrInvalidInput          = errors.New("invalid input")
	ErrPricesNotFound        = errors.New("prices not found")
)

// InsufficientAssetsError is returned when fewer than the required number
// of assets carry usable data.
type InsufficientAssetsError struct {
	Have int
	Need int
}

func (e *InsufficientAssetsError) Error() string {
	return fmt.Sprintf("insufficient assets: have %d, need at least %d", e.Have, e.Need)
}

// Is reports true for ErrInsufficientAssets and ErrInsufficientData.
func (e *InsufficientAssetsError) Is(target error) bool {
	return target == ErrInsufficientAssets || target == ErrInsufficientData
}

// InsufficientDataError is returned when the aligned price table holds too
// few observations for a stable covariance estimate.
type InsufficientDataError struct {
	Observations int
	Required     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d aligned observations, need at least %d", e.Observations, e.Required)
}

// Is reports true for ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// OptimizationError carries the solver diagnostic for a failed max Sharpe
// or min variance solve.
type OptimizationError struct {
	Mode    Mode
	Status  Status
	Message string
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("%s optimization did not converge: status=%s: %s", e.Mode, e.Status, e.Message)
}

// Is reports true for ErrOptimizationFailed.
func (e *OptimizationError) Is(target error) bool {
	return target == ErrOptimizationFailed
}
