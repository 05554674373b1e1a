package validator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ValidationOptions selects which checks run for one validation.
type ValidationOptions struct {
	CheckSyntax bool `json:"checkSyntax"`
	CheckStyle  bool `json:"checkStyle"`
	// CheckLogic enables the required and forbidden pattern passes.
	CheckLogic        bool     `json:"checkLogic"`
	RequiredPatterns  []string `json:"requiredPatterns,omitempty"`
	ForbiddenPatterns []string `json:"forbiddenPatterns,omitempty"`
}

// LintingResult is the verdict for one submission.
type LintingResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Score    int      `json:"score"`
	Feedback string   `json:"feedback"`
}

// Validator judges submitted code against a stage's expectations. It keeps no
// per-request state and is safe for concurrent use.
type Validator struct {
	analyzer StaticAnalyzer
}

// New creates a Validator. A nil analyzer means the native heuristics; any
// analyzer other than native is guarded by the native fallback.
func New(analyzer StaticAnalyzer) *Validator {
	switch analyzer.(type) {
	case nil:
		analyzer = NewNativeAnalyzer()
	case *NativeAnalyzer, *FallbackAnalyzer:
	default:
		analyzer = NewFallbackAnalyzer(analyzer, NewNativeAnalyzer(), DefaultAnalyzerTimeout)
	}
	return &Validator{analyzer: analyzer}
}

// Analyzer returns the static analyzer in use.
func (v *Validator) Analyzer() StaticAnalyzer {
	return v.analyzer
}

// ValidateStage validates userCode with the options configured for stageID
// and scores it against maxScore.
func (v *Validator) ValidateStage(ctx context.Context, stageID int, userCode string, maxScore int) *LintingResult {
	return v.Validate(ctx, userCode, OptionsForStage(stageID), maxScore)
}

// Validate runs the configured passes over code and builds the result.
func (v *Validator) Validate(ctx context.Context, code string, opts ValidationOptions, maxScore int) *LintingResult {
	var syntax, style Diagnostics

	g, gctx := errgroup.WithContext(ctx)
	if opts.CheckSyntax {
		g.Go(func() error {
			var err error
			if syntax, err = v.analyzer.CheckSyntax(gctx, code); err != nil {
				slog.Debug("syntax pass skipped", "analyzer", v.analyzer.Name(), "error", err)
			}
			return nil
		})
	}
	if opts.CheckStyle {
		g.Go(func() error {
			var err error
			if style, err = v.analyzer.CheckStyle(gctx, code); err != nil {
				slog.Debug("style pass skipped", "analyzer", v.analyzer.Name(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	errs := make([]string, 0, len(syntax.Errors)+len(style.Errors)+len(opts.RequiredPatterns))
	warnings := make([]string, 0, len(syntax.Warnings)+len(style.Warnings))

	errs = append(errs, syntax.Errors...)
	warnings = append(warnings, syntax.Warnings...)
	errs = append(errs, style.Errors...)
	warnings = append(warnings, style.Warnings...)

	if opts.CheckLogic {
		normalized := Normalize(code)
		for _, literal := range opts.RequiredPatterns {
			if !lookupPattern(literal).Match(normalized) {
				errs = append(errs, fmt.Sprintf("Missing required pattern: `%s`", literal))
			}
		}
		for _, literal := range opts.ForbiddenPatterns {
			if literal != "" && strings.Contains(code, literal) {
				errs = append(errs, fmt.Sprintf("Forbidden pattern found: `%s`", literal))
			}
		}
	}

	return &LintingResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
		Score:    Score(errs, warnings, maxScore),
		Feedback: ComposeFeedback(errs, warnings),
	}
}
