package validator

import (
	"regexp"
	"strings"
)

// Category identifies which heuristic family a pattern literal belongs to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryFunctionDef
	CategoryLoopOverNamed
	CategoryLoopWithRange
	CategoryLoop
	CategoryAccumulator
	CategoryKeyword
	CategoryCompound
)

func (c Category) String() string {
	switch c {
	case CategoryFunctionDef:
		return "function_def"
	case CategoryLoopOverNamed:
		return "loop_over_named"
	case CategoryLoopWithRange:
		return "loop_with_range"
	case CategoryLoop:
		return "loop"
	case CategoryAccumulator:
		return "accumulator"
	case CategoryKeyword:
		return "keyword"
	case CategoryCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// Pattern is a classified required-pattern literal. Classification happens
// once; matching only consults the category and its parameters.
type Pattern struct {
	Literal  string
	Category Category
	// Name is the function name for FunctionDef and the iterated container
	// for LoopOverNamed.
	Name string
	// Token is the substring a Keyword pattern looks for.
	Token string
	// Required lists the compact substrings a Compound pattern needs.
	Required []string

	re *regexp.Regexp
}

// loop target: a name, a tuple of names, optionally parenthesized
const loopVars = `\(?\s*[a-z_][a-z0-9_]*(?:\s*,\s*[a-z_][a-z0-9_]*)*\s*\)?`

var (
	loopOverNumbersRe = regexp.MustCompile(`\bfor\s+` + loopVars + `\s+in\s+numbers\b`)
	loopWithRangeRe   = regexp.MustCompile(`\bfor\s+` + loopVars + `\s+in\s+range\s*\(`)
	anyLoopRe         = regexp.MustCompile(`\bfor\s+` + loopVars + `\s+in\s+\S`)
	selfAdditionRe    = regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\s*=\s*([a-z_][a-z0-9_]*)\s*\+`)
)

// keywordTokens are single-token idioms matched by containment. Order matters:
// the first token contained in a literal wins.
var keywordTokens = []string{
	"[::-1]",
	"title()",
	"print(",
	"max(",
	"count(",
	"split(",
	"len(",
	"return",
	"while ",
	"class ",
	"self.",
	"import ",
	"@",
}

// compoundIdioms maps a normalized literal to the compact substrings that must
// all be present for the idiom to count as used.
var compoundIdioms = map[string][]string{
	"a, b = b, a":                  {"a,b=b,a"},
	"a, b = b, a + b":              {"a,b=b,a+b"},
	"int(n**0.5)":                  {"range(", "int(", "**0.5)"},
	"% 2 == 0":                     {"%2==0"},
	"% i == 0":                     {"%", "==0"},
	"[x**2 for x in":               {"[", "**2for", "in"},
	"max(counts, key=counts.get)":  {"max(", "key="},
	"dict(zip(":                    {"dict(", "zip("},
	"for j in range(0, n - i - 1)": {"forj", "inrange(", "-i-1"},
	"arr[j] > arr[j + 1]":          {"[j]>", "[j+1]"},
	"if n <= 1":                    {"if", "n<=1", "return1"},
	"n * factorial(n - 1)":         {"*factorial(", "-1)"},
	"while low <= high":            {"while", "low<=high", "mid"},
	"mid = (low + high) // 2":      {"mid=", "low+high", "//2"},
	"re.findall(":                  {"importre", "re.findall("},
	"re.search(":                   {"importre", "re.search("},
	"def __init__(self":            {"def__init__(self"},
	"self.name = name":             {"self.name=name"},
}

// Classify maps a pattern literal to its heuristic family. Literals no family
// recognizes classify as CategoryUnknown and never match.
func Classify(literal string) Pattern {
	p := Pattern{Literal: literal}
	norm := Normalize(literal)

	if required, ok := compoundIdioms[norm]; ok {
		p.Category = CategoryCompound
		p.Required = required
		return p
	}

	switch {
	case strings.HasPrefix(norm, "def "):
		name := strings.TrimSpace(strings.TrimPrefix(norm, "def "))
		if i := strings.IndexByte(name, '('); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		if name == "" || strings.ContainsAny(name, " :") {
			return p
		}
		p.Category = CategoryFunctionDef
		p.Name = name
		p.re = regexp.MustCompile(`\bdef\s+` + regexp.QuoteMeta(name) + `\s*\(`)
		return p

	case strings.HasPrefix(norm, "for "):
		fields := strings.Fields(norm)
		switch {
		case len(fields) >= 4 && fields[2] == "in" && fields[3] == "numbers":
			p.Category = CategoryLoopOverNamed
			p.Name = "numbers"
			p.re = loopOverNumbersRe
		case strings.Contains(norm, "range"):
			p.Category = CategoryLoopWithRange
			p.re = loopWithRangeRe
		default:
			p.Category = CategoryLoop
			p.re = anyLoopRe
		}
		return p

	case strings.Contains(norm, "+="):
		p.Category = CategoryAccumulator
		return p
	}

	lower := strings.ToLower(literal)
	for _, token := range keywordTokens {
		if strings.Contains(lower, token) || norm == strings.TrimSpace(token) {
			p.Category = CategoryKeyword
			p.Token = token
			return p
		}
	}

	return p
}

// Match reports whether normalized code exhibits the pattern.
func (p Pattern) Match(normalized string) bool {
	switch p.Category {
	case CategoryFunctionDef, CategoryLoopOverNamed, CategoryLoopWithRange, CategoryLoop:
		return p.re != nil && p.re.MatchString(normalized)

	case CategoryAccumulator:
		if strings.Contains(normalized, "+=") {
			return true
		}
		for _, m := range selfAdditionRe.FindAllStringSubmatch(normalized, -1) {
			if m[1] == m[2] {
				return true
			}
		}
		return false

	case CategoryKeyword:
		return strings.Contains(normalized, p.Token)

	case CategoryCompound:
		compact := strings.ReplaceAll(normalized, " ", "")
		for _, sub := range p.Required {
			if !strings.Contains(compact, sub) {
				return false
			}
		}
		return len(p.Required) > 0

	default:
		return false
	}
}

// MatchesPattern reports whether code exhibits the structural pattern named by
// the literal. It never executes the code.
func MatchesPattern(code, pattern string) bool {
	return lookupPattern(pattern).Match(Normalize(code))
}
