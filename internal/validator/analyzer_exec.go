package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ExecAnalyzer shells out to locally installed analysis tools against a
// temporary copy of the submission.
type ExecAnalyzer struct {
	syntaxCmd []string
	styleCmd  []string
	tempDir   string
}

// NewExecAnalyzer creates an analyzer running the given commands. Empty
// commands fall back to DefaultSyntaxCommand and DefaultStyleCommand.
func NewExecAnalyzer(syntaxCmd, styleCmd []string, tempDir string) *ExecAnalyzer {
	if len(syntaxCmd) == 0 {
		syntaxCmd = DefaultSyntaxCommand
	}
	if len(styleCmd) == 0 {
		styleCmd = DefaultStyleCommand
	}
	return &ExecAnalyzer{
		syntaxCmd: syntaxCmd,
		styleCmd:  styleCmd,
		tempDir:   tempDir,
	}
}

func (a *ExecAnalyzer) Name() string {
	return string(ModeExec)
}

// CheckSyntax runs the syntax command and parses its traceback output.
func (a *ExecAnalyzer) CheckSyntax(ctx context.Context, code string) (Diagnostics, error) {
	out, err := a.run(ctx, a.syntaxCmd, code, syntaxToolFailed)
	if err != nil {
		return Diagnostics{}, err
	}
	return classifyCompileOutput(out), nil
}

// CheckStyle runs the lint command and classifies its report lines.
func (a *ExecAnalyzer) CheckStyle(ctx context.Context, code string) (Diagnostics, error) {
	out, err := a.run(ctx, a.styleCmd, code, lintToolFailed)
	if err != nil {
		return Diagnostics{}, err
	}
	return classifyToolOutput(out), nil
}

// HealthCheck reports whether both tools resolve on PATH.
func (a *ExecAnalyzer) HealthCheck(_ context.Context) error {
	for _, cmd := range [][]string{a.syntaxCmd, a.styleCmd} {
		if _, err := exec.LookPath(cmd[0]); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrToolUnavailable, cmd[0], err)
		}
	}
	return nil
}

// run executes argv with the staged file appended and returns the combined
// output. failed decides whether a non-zero exit means the tool itself broke
// (as opposed to reporting findings).
func (a *ExecAnalyzer) run(ctx context.Context, argv []string, code string, failed func(exitCode int, output string) bool) (string, error) {
	if _, err := exec.LookPath(argv[0]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	var output string
	err := withTempSource(a.tempDir, code, func(path string) error {
		args := append(append([]string{}, argv[1:]...), path)
		cmd := exec.CommandContext(ctx, argv[0], args...)
		// children holding the output pipes must not outlive the deadline
		cmd.WaitDelay = 500 * time.Millisecond

		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf

		runErr := cmd.Run()
		output = buf.String()

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrToolUnavailable, ctx.Err())
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			if failed(exitErr.ExitCode(), output) {
				return fmt.Errorf("%w: %s exited with %d", ErrToolUnavailable, argv[0], exitErr.ExitCode())
			}
			return nil
		}
		if runErr != nil {
			return fmt.Errorf("%w: %v", ErrToolUnavailable, runErr)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrToolUnavailable) {
			err = fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}
		return "", err
	}

	return output, nil
}

// syntaxToolFailed treats a non-zero exit without any output as a broken tool.
func syntaxToolFailed(_ int, output string) bool {
	return len(bytes.TrimSpace([]byte(output))) == 0
}

// lintToolFailed uses pylint's bit-encoded exit status: 1 is fatal, 32 is a
// usage error. Any other combination only reports findings.
func lintToolFailed(exitCode int, _ string) bool {
	return exitCode&1 != 0 || exitCode&32 != 0
}
