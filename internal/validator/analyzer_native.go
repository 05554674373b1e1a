package validator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLineLength is the longest line the style pass accepts without a warning.
const MaxLineLength = 120

var controlKeywords = map[string]bool{
	"if":      true,
	"for":     true,
	"while":   true,
	"def":     true,
	"class":   true,
	"elif":    true,
	"else":    true,
	"try":     true,
	"except":  true,
	"finally": true,
	"with":    true,
}

// NativeAnalyzer is the dependency-free heuristic checker. It is always
// available and never returns an error.
type NativeAnalyzer struct{}

// NewNativeAnalyzer creates the heuristic analyzer.
func NewNativeAnalyzer() *NativeAnalyzer {
	return &NativeAnalyzer{}
}

func (a *NativeAnalyzer) Name() string {
	return string(ModeNative)
}

// CheckSyntax performs line-by-line checks for unmatched parentheses,
// unterminated string literals and control-flow headers without a colon.
func (a *NativeAnalyzer) CheckSyntax(_ context.Context, code string) (Diagnostics, error) {
	var diags Diagnostics
	triple := ""

	for i, line := range splitLines(code) {
		lineNo := i + 1
		startedInString := triple != ""
		scan := scanLine(line, &triple)

		if scan.parens != 0 {
			diags.Errors = append(diags.Errors, fmt.Sprintf("Line %d: Unmatched parentheses", lineNo))
		}
		if scan.unclosedQuote {
			diags.Errors = append(diags.Errors, fmt.Sprintf("Line %d: Unclosed string literal", lineNo))
		}
		if startedInString {
			continue
		}
		if kw := missingColon(scan); kw != "" {
			diags.Errors = append(diags.Errors, fmt.Sprintf("Line %d: Missing colon after '%s' statement", lineNo, kw))
		}
	}

	return diags, nil
}

// CheckStyle flags mixed tab/space indentation and overly long lines.
func (a *NativeAnalyzer) CheckStyle(_ context.Context, code string) (Diagnostics, error) {
	var diags Diagnostics
	var usesTabs, usesSpaces bool

	for i, line := range splitLines(code) {
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if strings.Contains(indent, "\t") {
			usesTabs = true
		}
		if strings.Contains(indent, " ") {
			usesSpaces = true
		}

		if n := utf8.RuneCountInString(line); n > MaxLineLength {
			diags.Warnings = append(diags.Warnings,
				fmt.Sprintf("Line %d: Line too long (%d > %d characters)", i+1, n, MaxLineLength))
		}
	}

	if usesTabs && usesSpaces {
		diags.Warnings = append([]string{"Mixed tabs and spaces in indentation"}, diags.Warnings...)
	}

	return diags, nil
}

func splitLines(code string) []string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return strings.Split(code, "\n")
}

type lineScan struct {
	// parens is the open-minus-close parenthesis count outside strings and comments.
	parens        int
	unclosedQuote bool
	// code is the line with any trailing comment removed.
	code          string
	topLevelColon bool
}

// scanLine walks one physical line. triple carries an open triple-quoted
// string across lines.
func scanLine(line string, triple *string) lineScan {
	var scan lineScan
	var quote byte
	brackets := 0
	end := len(line)

	for i := 0; i < len(line); {
		c := line[i]

		switch {
		case *triple != "":
			if c == '\\' {
				i += 2
				continue
			}
			if strings.HasPrefix(line[i:], *triple) {
				*triple = ""
				i += 3
				continue
			}
			i++

		case quote != 0:
			if c == '\\' {
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++

		default:
			if c == '#' {
				end = i
				i = len(line)
				continue
			}
			if strings.HasPrefix(line[i:], `"""`) || strings.HasPrefix(line[i:], `'''`) {
				*triple = line[i : i+3]
				i += 3
				continue
			}
			switch c {
			case '"', '\'':
				quote = c
			case '(':
				scan.parens++
				brackets++
			case ')':
				scan.parens--
				brackets--
			case '[', '{':
				brackets++
			case ']', '}':
				brackets--
			case ':':
				if brackets <= 0 {
					scan.topLevelColon = true
				}
			}
			i++
		}
	}

	scan.unclosedQuote = quote != 0
	scan.code = strings.TrimSpace(line[:end])
	return scan
}

// missingColon returns the control keyword heading a line that lacks its
// colon, or "" when the line is fine.
func missingColon(scan lineScan) string {
	code := scan.code
	if code == "" || strings.HasSuffix(code, "\\") {
		return ""
	}

	n := 0
	for n < len(code) && (code[n] == '_' || code[n] >= 'a' && code[n] <= 'z' || code[n] >= 'A' && code[n] <= 'Z') {
		n++
	}
	word := code[:n]
	if !controlKeywords[word] {
		return ""
	}
	if n < len(code) {
		next := code[n]
		if next != ' ' && next != '\t' && next != ':' && next != '(' {
			return ""
		}
	}

	if strings.HasSuffix(code, ":") || scan.topLevelColon {
		return ""
	}
	return word
}
