package health

import (
	"context"
)

// Checker probes one dependency of the service
type Checker interface {
	// Type returns the dependency type name
	Type() string

	// HealthCheck returns nil when the dependency is usable
	HealthCheck(ctx context.Context) error
}

// BaseChecker provides common functionality for checkers
type BaseChecker struct {
	checkerType string
}

// Type returns the checker type
func (c *BaseChecker) Type() string {
	return c.checkerType
}

// CheckFunc adapts a plain function to Checker
type CheckFunc struct {
	BaseChecker
	fn func(ctx context.Context) error
}

// NewCheckFunc wraps fn as a Checker of the given type
func NewCheckFunc(checkerType string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{BaseChecker: BaseChecker{checkerType: checkerType}, fn: fn}
}

// HealthCheck calls the wrapped function
func (c *CheckFunc) HealthCheck(ctx context.Context) error {
	return c.fn(ctx)
}
