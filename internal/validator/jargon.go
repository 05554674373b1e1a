package validator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// jargonRule rewrites one piece of technical wording into learner-friendly
// language. hint, when set, is appended once to messages the rule touched.
type jargonRule struct {
	find    string
	replace string
	hint    string
}

const (
	patternHint      = "Check the task description for what your code needs"
	forbiddenHint    = "Try solving it without this shortcut"
	syntaxHint       = "Check the line for typos or unclosed brackets"
	eofHint          = "Check for brackets or blocks that are never closed"
	colonHint        = "Lines starting with if, for, while, def or class must end with a colon"
	parenHint        = "Every opening bracket needs a matching closing one"
	quoteHint        = "Every quote needs a matching closing quote"
	indentHint       = "Keep lines of the same block at the same indentation"
	tabsHint         = "Use spaces for indentation, four per level"
	undefinedHint    = "Make sure you define the variable before using it"
	unusedVarHint    = "Remove variables you do not use"
	unusedImportHint = "Remove imports you do not need"
	longLineHint     = "Split long lines into shorter ones"
)

// fallbackMessage replaces messages that simplify down to nothing.
const fallbackMessage = "Please review this part of your code"

// jargonRules are applied in order; longer, more specific wording comes first.
var jargonRules = []jargonRule{
	{find: "Missing required pattern:", replace: "Your solution should include", hint: patternHint},
	{find: "Forbidden pattern found:", replace: "Your solution should not use", hint: forbiddenHint},

	{find: "SyntaxError: invalid syntax", replace: "there is a syntax problem", hint: syntaxHint},
	{find: "SyntaxError: unexpected EOF while parsing", replace: "the code ends unexpectedly", hint: eofHint},
	{find: "SyntaxError: EOL while scanning string literal", replace: "a text string is not closed", hint: quoteHint},
	{find: "SyntaxError: unterminated string literal", replace: "a text string is not closed", hint: quoteHint},
	{find: "SyntaxError: unterminated triple-quoted string literal", replace: "a multi-line text string is not closed", hint: quoteHint},
	{find: "SyntaxError: expected ':'", replace: "a colon is missing", hint: colonHint},
	{find: "SyntaxError: '(' was never closed", replace: "a bracket is never closed", hint: parenHint},
	{find: "SyntaxError: unmatched ')'", replace: "there is an extra closing bracket", hint: parenHint},
	{find: "SyntaxError: missing", replace: "something is missing:", hint: syntaxHint},
	{find: "SyntaxError:", replace: "syntax problem:", hint: syntaxHint},

	{find: "IndentationError: unexpected indent", replace: "this line is indented more than expected", hint: indentHint},
	{find: "IndentationError: expected an indented block", replace: "a block is missing its indented body", hint: indentHint},
	{find: "IndentationError: unindent does not match any outer indentation level", replace: "the indentation does not line up", hint: indentHint},
	{find: "IndentationError:", replace: "indentation problem:", hint: indentHint},
	{find: "TabError: inconsistent use of tabs and spaces in indentation", replace: "tabs and spaces are mixed", hint: tabsHint},

	{find: "E0602: Undefined variable", replace: "undefined variable", hint: undefinedHint},
	{find: "Undefined variable", replace: "undefined variable", hint: undefinedHint},
	{find: "W0612: Unused variable", replace: "unused variable", hint: unusedVarHint},
	{find: "Unused variable", replace: "unused variable", hint: unusedVarHint},
	{find: "W0611: Unused import", replace: "unused import", hint: unusedImportHint},
	{find: "Unused import", replace: "unused import", hint: unusedImportHint},
	{find: " (undefined-variable)", replace: ""},
	{find: " (unused-variable)", replace: ""},
	{find: " (unused-import)", replace: ""},

	{find: "Unmatched parentheses", replace: "unmatched parentheses", hint: parenHint},
	{find: "Unclosed string literal", replace: "a text string is not closed", hint: quoteHint},
	{find: "Missing colon after", replace: "missing colon after", hint: colonHint},
	{find: "Mixed tabs and spaces in indentation", replace: "mixed tabs and spaces in indentation", hint: tabsHint},
	{find: "Line too long", replace: "this line is too long", hint: longLineHint},
	{find: "invalid syntax", replace: "there is a syntax problem", hint: syntaxHint},
}

var (
	pathPrefixRe      = regexp.MustCompile(`^\s*[^\s:]+\.py:(\d+)(?::\d+)?:\s*`)
	tracebackPrefixRe = regexp.MustCompile(`^\s*File "[^"]*", line (\d+),?\s*`)
	codePrefixRe      = regexp.MustCompile(`^(Line \d+: )?(?:[A-Z]\d{4}:\s*)+`)
)

// SimplifyMessage turns a raw diagnostic into a friendly sentence. It is
// total and idempotent, and yields a non-empty string for non-empty input.
func SimplifyMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// passes can expose new prefixes or capitalize rule input; iterate to a
	// fixed point so a second call changes nothing
	out := msg
	for {
		next := simplifyPass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func simplifyPass(msg string) string {
	out := pathPrefixRe.ReplaceAllString(msg, "Line $1: ")
	out = tracebackPrefixRe.ReplaceAllString(out, "Line $1: ")

	var hints []string
	for _, rule := range jargonRules {
		if !strings.Contains(out, rule.find) {
			continue
		}
		out = strings.ReplaceAll(out, rule.find, rule.replace)
		if rule.hint != "" {
			hints = append(hints, rule.hint)
		}
	}

	out = strings.Join(strings.Fields(out), " ")
	out = strings.TrimLeft(out, "•·*- ")
	out = codePrefixRe.ReplaceAllString(out, "$1")
	out = strings.TrimSpace(out)
	out = capitalize(out)

	if out == "" {
		return fallbackMessage
	}

	if len(hints) > 0 && !strings.Contains(out, hints[0]) {
		if strings.HasSuffix(out, ".") || strings.HasSuffix(out, "!") || strings.HasSuffix(out, "?") {
			out += " " + hints[0] + "."
		} else {
			out += ". " + hints[0] + "."
		}
	}

	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
