package health

import (
	"context"

	"github.com/terra-clan/code-validator/internal/validator"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AnalyzerChecker reports whether the preferred static analyzer is usable.
// The native fallback keeps validation working either way, so this checker
// is registered as optional.
type AnalyzerChecker struct {
	BaseChecker
	analyzer validator.StaticAnalyzer
}

// NewAnalyzerChecker creates a checker for analyzer
func NewAnalyzerChecker(analyzer validator.StaticAnalyzer) *AnalyzerChecker {
	return &AnalyzerChecker{
		BaseChecker: BaseChecker{checkerType: "analyzer"},
		analyzer:    analyzer,
	}
}

// HealthCheck delegates to the preferred analyzer when it can check itself
func (c *AnalyzerChecker) HealthCheck(ctx context.Context) error {
	a := c.analyzer
	if fb, ok := a.(*validator.FallbackAnalyzer); ok {
		a = fb.Preferred()
	}
	if hc, ok := a.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
