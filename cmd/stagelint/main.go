// Command stagelint validates a Python file against a stage from the catalog
// and prints the verdict the service would return.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/terra-clan/code-validator/internal/catalog"
	"github.com/terra-clan/code-validator/internal/validator"
)

func main() {
	if err := newCommand(os.Stdin, os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand(stdin io.Reader, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "stagelint",
		Usage:     "validate a Python submission against a stage",
		ArgsUsage: "FILE (use - for stdin)",
		Writer:    stdout,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "stage",
				Aliases:  []string{"s"},
				Usage:    "stage id to validate against",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "max-score",
				Usage: "maximum score (defaults to the stage's points)",
			},
			&cli.StringFlag{
				Name:    "stages-dir",
				Usage:   "directory with stage YAML files",
				Value:   "./stages",
				Sources: cli.EnvVars("STAGES_DIR"),
			},
			&cli.StringFlag{
				Name:    "analyzer",
				Usage:   "analyzer mode: native, exec, docker or treesitter",
				Value:   string(validator.ModeNative),
				Sources: cli.EnvVars("ANALYZER_MODE"),
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("no-color") {
				color.NoColor = true
			}
			if cmd.NArg() != 1 {
				return cli.Exit("exactly one FILE argument is required", 2)
			}

			code, err := readSource(cmd.Args().First(), stdin)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			stages := catalog.NewLoader()
			if err := stages.LoadFromDir(cmd.String("stages-dir")); err != nil {
				return cli.Exit(fmt.Sprintf("failed to load stages: %v", err), 2)
			}

			stageID := cmd.Int("stage")
			stage := stages.Get(stageID)
			if stage == nil {
				return cli.Exit(fmt.Sprintf("stage %d not found", stageID), 2)
			}

			maxScore := cmd.Int("max-score")
			if maxScore <= 0 {
				maxScore = stage.Points
			}

			analyzer, err := validator.NewAnalyzer(validator.AnalyzerConfig{
				Mode:    validator.AnalyzerMode(cmd.String("analyzer")),
				Timeout: validator.DefaultAnalyzerTimeout,
			})
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			result := validator.New(analyzer).ValidateStage(ctx, stage.ID, code, maxScore)
			printResult(cmd.Root().Writer, stage.ID, stage.Title, maxScore, result)

			if !result.IsValid {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func readSource(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

var (
	passStyle    = color.New(color.FgGreen, color.Bold)
	failStyle    = color.New(color.FgRed, color.Bold)
	errorStyle   = color.New(color.FgRed)
	warningStyle = color.New(color.FgYellow)
	faintStyle   = color.New(color.Faint)
)

func printResult(w io.Writer, stageID int, title string, maxScore int, result *validator.LintingResult) {
	verdict := passStyle.Sprint("PASS")
	if !result.IsValid {
		verdict = failStyle.Sprint("FAIL")
	}
	fmt.Fprintf(w, "%s stage %d %s\n", verdict, stageID, faintStyle.Sprintf("(%s)", title))

	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s %s\n", errorStyle.Sprint("error:"), e)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Sprint("warning:"), warn)
	}

	fmt.Fprintf(w, "score: %d/%d\n\n", result.Score, maxScore)
	fmt.Fprintln(w, strings.TrimRight(result.Feedback, "\n"))
}
