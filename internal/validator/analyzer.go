package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"
)

// ErrToolUnavailable is returned by analyzers backed by an external tool that
// is missing, failed to run or did not finish in time.
var ErrToolUnavailable = errors.New("analysis tool unavailable")

// TempFilePattern is the os.CreateTemp pattern used for staged submissions.
const TempFilePattern = "submission-*.py"

// DefaultAnalyzerTimeout bounds a single external analyzer invocation.
const DefaultAnalyzerTimeout = 5 * time.Second

// Diagnostics is the output of one static-check pass.
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

// StaticAnalyzer runs syntax and style passes over submitted source code.
type StaticAnalyzer interface {
	// Name returns a short identifier for logs, e.g. "native" or "exec".
	Name() string

	// CheckSyntax reports syntax-level problems.
	CheckSyntax(ctx context.Context, code string) (Diagnostics, error)

	// CheckStyle reports style-level problems.
	CheckStyle(ctx context.Context, code string) (Diagnostics, error)
}

// AnalyzerMode selects the preferred analyzer implementation.
type AnalyzerMode string

const (
	ModeNative     AnalyzerMode = "native"
	ModeExec       AnalyzerMode = "exec"
	ModeDocker     AnalyzerMode = "docker"
	ModeTreeSitter AnalyzerMode = "treesitter"
)

// AnalyzerConfig configures NewAnalyzer.
type AnalyzerConfig struct {
	Mode    AnalyzerMode
	Timeout time.Duration
	// SyntaxCommand and StyleCommand are argv prefixes; the staged file path is
	// appended as the last argument.
	SyntaxCommand []string
	StyleCommand  []string
	// TempDir is where submissions are staged; empty means os.TempDir().
	TempDir string

	DockerHost  string
	DockerImage string
}

// DefaultSyntaxCommand compiles the file without running it.
var DefaultSyntaxCommand = []string{"python3", "-m", "py_compile"}

// DefaultStyleCommand limits pylint to the variable and import checks.
var DefaultStyleCommand = []string{
	"pylint",
	"--disable=all",
	"--enable=unused-variable,undefined-variable,unused-import",
	"--score=n",
	"--output-format=text",
}

// NewAnalyzer builds the analyzer for cfg. Every mode other than native is
// wrapped in a FallbackAnalyzer so callers never see tool failures.
func NewAnalyzer(cfg AnalyzerConfig) (StaticAnalyzer, error) {
	native := NewNativeAnalyzer()

	var preferred StaticAnalyzer
	switch cfg.Mode {
	case "", ModeNative:
		return native, nil
	case ModeExec:
		preferred = NewExecAnalyzer(cfg.SyntaxCommand, cfg.StyleCommand, cfg.TempDir)
	case ModeDocker:
		docker, err := NewDockerAnalyzer(cfg.DockerHost, cfg.DockerImage, cfg.SyntaxCommand, cfg.StyleCommand, cfg.TempDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create docker analyzer: %w", err)
		}
		preferred = docker
	case ModeTreeSitter:
		preferred = NewTreeSitterAnalyzer()
	default:
		return nil, fmt.Errorf("unknown analyzer mode: %q", cfg.Mode)
	}

	return NewFallbackAnalyzer(preferred, native, cfg.Timeout), nil
}

// FallbackAnalyzer prefers one analyzer and substitutes the native heuristics
// whenever the preferred one fails or times out.
type FallbackAnalyzer struct {
	preferred StaticAnalyzer
	fallback  StaticAnalyzer
	timeout   time.Duration
}

// NewFallbackAnalyzer wraps preferred with fallback.
func NewFallbackAnalyzer(preferred, fallback StaticAnalyzer, timeout time.Duration) *FallbackAnalyzer {
	if timeout <= 0 {
		timeout = DefaultAnalyzerTimeout
	}
	return &FallbackAnalyzer{
		preferred: preferred,
		fallback:  fallback,
		timeout:   timeout,
	}
}

// Name returns the preferred analyzer's name.
func (a *FallbackAnalyzer) Name() string {
	return a.preferred.Name()
}

// Preferred returns the wrapped preferred analyzer.
func (a *FallbackAnalyzer) Preferred() StaticAnalyzer {
	return a.preferred
}

// CheckSyntax runs the preferred syntax pass, falling back on failure.
func (a *FallbackAnalyzer) CheckSyntax(ctx context.Context, code string) (Diagnostics, error) {
	return a.run(ctx, "syntax", code, a.preferred.CheckSyntax, a.fallback.CheckSyntax)
}

// CheckStyle runs the preferred style pass, falling back on failure.
func (a *FallbackAnalyzer) CheckStyle(ctx context.Context, code string) (Diagnostics, error) {
	return a.run(ctx, "style", code, a.preferred.CheckStyle, a.fallback.CheckStyle)
}

type checkFunc func(ctx context.Context, code string) (Diagnostics, error)

func (a *FallbackAnalyzer) run(ctx context.Context, pass, code string, preferred, fallback checkFunc) (Diagnostics, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	diags, err := preferred(callCtx, code)
	if err == nil {
		return diags, nil
	}

	slog.Debug("static analyzer unavailable, using fallback",
		"analyzer", a.preferred.Name(),
		"pass", pass,
		"error", err,
	)
	return fallback(ctx, code)
}

// StagingDirPattern names the per-call directories mounted into analyzer
// containers.
const StagingDirPattern = "analyzer-*"

// withStagingDir creates a private directory under parent for one analyzer
// call, calls fn with it and removes it with everything inside.
func withStagingDir(parent string, fn func(dir string) error) error {
	dir, err := os.MkdirTemp(parent, StagingDirPattern)
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}

	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove staging dir", "path", dir, "error", err)
		}
	}()

	return fn(dir)
}

// withTempSource stages code in a uniquely named file inside dir, calls fn
// with its path and removes the file before returning.
func withTempSource(dir, code string, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, TempFilePattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}()

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return fn(path)
}

// classifyToolOutput splits analyzer output into errors and warnings by
// keyword sniffing. Blank lines and pylint banner lines are dropped.
func classifyToolOutput(output string) Diagnostics {
	var diags Diagnostics
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isToolBanner(line) {
			continue
		}
		if isErrorLine(line) {
			diags.Errors = append(diags.Errors, line)
		} else {
			diags.Warnings = append(diags.Warnings, line)
		}
	}
	return diags
}

func isToolBanner(line string) bool {
	return strings.HasPrefix(line, "*************") ||
		strings.HasPrefix(line, "-----") ||
		strings.HasPrefix(line, "Your code has been rated")
}

func isErrorLine(line string) bool {
	if strings.Contains(line, "error") || strings.Contains(line, "Error") {
		return true
	}
	// pylint message ids: "file.py:3:4: E0602: ..."
	return pylintErrorRe.MatchString(line)
}

var (
	pylintErrorRe   = regexp.MustCompile(`: [EF]\d{4}:`)
	tracebackFileRe = regexp.MustCompile(`^\s*File "[^"]*", line (\d+)`)
)

// classifyCompileOutput understands python tracebacks: the reported line
// number is folded into the error message and echoed source lines are dropped.
// Anything else is classified by keyword.
func classifyCompileOutput(output string) Diagnostics {
	var diags Diagnostics
	lineNo := ""
	for _, raw := range strings.Split(output, "\n") {
		if m := tracebackFileRe.FindStringSubmatch(raw); m != nil {
			lineNo = m[1]
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" || raw != strings.TrimLeft(raw, " \t") || strings.HasPrefix(line, "Traceback") {
			continue
		}
		if isErrorLine(line) {
			if lineNo != "" {
				line = "Line " + lineNo + ": " + line
				lineNo = ""
			}
			diags.Errors = append(diags.Errors, line)
		} else {
			diags.Warnings = append(diags.Warnings, line)
		}
	}
	return diags
}
