package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		literal  string
		category Category
		name     string
		token    string
	}{
		{"def calculate_sum", CategoryFunctionDef, "calculate_sum", ""},
		{"def find_max(", CategoryFunctionDef, "find_max", ""},
		{"for num in numbers", CategoryLoopOverNamed, "numbers", ""},
		{"for i in range", CategoryLoopWithRange, "", ""},
		{"for _ in range", CategoryLoopWithRange, "", ""},
		{"for char in text", CategoryLoop, "", ""},
		{"sum += num", CategoryAccumulator, "", ""},
		{"return sum", CategoryKeyword, "", "return"},
		{"[::-1]", CategoryKeyword, "", "[::-1]"},
		{"while ", CategoryKeyword, "", "while "},
		{"class Dog", CategoryKeyword, "", "class "},
		{"import re", CategoryKeyword, "", "import "},
		{"@", CategoryKeyword, "", "@"},
		{"a, b = b, a", CategoryCompound, "", ""},
		{"def __init__(self", CategoryCompound, "", ""},
		{"for j in range(0, n - i - 1)", CategoryCompound, "", ""},
		{"something else entirely", CategoryUnknown, "", ""},
		{"", CategoryUnknown, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			p := Classify(tt.literal)
			assert.Equal(t, tt.category, p.Category, "category of %q is %s", tt.literal, p.Category)
			assert.Equal(t, tt.name, p.Name)
			assert.Equal(t, tt.token, p.Token)
		})
	}
}

func TestMatchesPatternLoopRequiresIn(t *testing.T) {
	assert.False(t, MatchesPattern("for i range(10):\n    print(i)", "for i in range"))
	assert.True(t, MatchesPattern("for i in range(10):\n    print(i)", "for i in range"))
	assert.True(t, MatchesPattern("for idx in range(len(xs)):", "for i in range"))
	assert.False(t, MatchesPattern("for i inrange(10):", "for i in range"))
}

func TestMatchesPatternFunctionDef(t *testing.T) {
	assert.True(t, MatchesPattern("def calculate_sum(numbers):", "def calculate_sum"))
	assert.True(t, MatchesPattern("DEF   Calculate_Sum (  numbers ) :", "def calculate_sum"))
	assert.False(t, MatchesPattern("def calculate_sum_all(numbers):", "def calculate_sum"))
	assert.False(t, MatchesPattern("calculate_sum(numbers)", "def calculate_sum"))
}

func TestMatchesPatternLoopOverNumbers(t *testing.T) {
	assert.True(t, MatchesPattern("for n in numbers:\n  total += n", "for num in numbers"))
	assert.True(t, MatchesPattern("for i, n in numbers:", "for num in numbers"))
	assert.False(t, MatchesPattern("for n in numbers_list:", "for num in numbers"))
	assert.False(t, MatchesPattern("for n numbers:", "for num in numbers"))
}

func TestMatchesPatternAccumulator(t *testing.T) {
	assert.True(t, MatchesPattern("total += n", "sum += num"))
	assert.True(t, MatchesPattern("total = total + n", "sum += num"))
	assert.False(t, MatchesPattern("total = other + n", "sum += num"))
	assert.False(t, MatchesPattern("total == total + n", "sum += num"))
}

func TestMatchesPatternKeyword(t *testing.T) {
	assert.True(t, MatchesPattern("return text[::-1]", "[::-1]"))
	assert.True(t, MatchesPattern("    return  x", "return sum"))
	assert.True(t, MatchesPattern("while n > 0:", "while "))
	assert.False(t, MatchesPattern("n = 0", "while "))
	assert.True(t, MatchesPattern("@timer\ndef f(): pass", "@"))
}

func TestMatchesPatternCompound(t *testing.T) {
	tests := []struct {
		code    string
		pattern string
		want    bool
	}{
		{"a,b = b,a", "a, b = b, a", true},
		{"a, b = a, b", "a, b = b, a", false},
		{"a, b = b, a + b", "a, b = b, a + b", true},
		{"for i in range(2, int(n ** 0.5) + 1):", "int(n**0.5)", true},
		{"limit = int(n ** 0.5)", "int(n**0.5)", false},
		{"if n % i == 0:", "% i == 0", true},
		{"if n % i:", "% i == 0", false},
		{"return [x ** 2 for x in numbers]", "[x**2 for x in", true},
		{"return max(counts, key=counts.get)", "max(counts, key=counts.get)", true},
		{"return max(counts)", "max(counts, key=counts.get)", false},
		{"row = dict(zip(headers, values))", "dict(zip(", true},
		{"for j in range(0, n - i - 1):", "for j in range(0, n - i - 1)", true},
		{"if arr[j] > arr[j + 1]:", "arr[j] > arr[j + 1]", true},
		{"if n <= 1:\n    return 1", "if n <= 1", true},
		{"return n * factorial(n - 1)", "n * factorial(n - 1)", true},
		{"while low <= high:\n    mid = 0", "while low <= high", true},
		{"while low <= high:", "while low <= high", false},
		{"import re\nre.findall(p, t)", "re.findall(", true},
		{"re.findall(p, t)", "re.findall(", false},
		{"def __init__(self, name):", "def __init__(self", true},
		{"self.name = name", "self.name = name", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesPattern(tt.code, tt.pattern), "code %q pattern %q", tt.code, tt.pattern)
	}
}

func TestMatchesPatternUnknownDenies(t *testing.T) {
	assert.False(t, MatchesPattern("anything at all", "totally unrecognized"))
	assert.False(t, MatchesPattern("", ""))
}

func TestMatchesPatternDeterministic(t *testing.T) {
	code := "def calculate_sum(numbers):\n    sum = 0\n    for num in numbers:\n        sum += num\n    return sum"
	for _, pattern := range OptionsForStage(1).RequiredPatterns {
		first := MatchesPattern(code, pattern)
		for i := 0; i < 20; i++ {
			require.Equal(t, first, MatchesPattern(code, pattern))
		}
	}
}

func TestStageProfiles(t *testing.T) {
	require.Len(t, stageProfiles, 20)

	for id, profile := range stageProfiles {
		assert.NotEmpty(t, profile.required, "stage %d", id)
		assert.LessOrEqual(t, len(profile.required), 4, "stage %d", id)
		for _, p := range StagePatterns(id) {
			assert.NotEqual(t, CategoryUnknown, p.Category, "stage %d pattern %q", id, p.Literal)
		}
	}

	assert.Equal(t,
		[]string{"def calculate_sum", "for num in numbers", "sum += num", "return sum"},
		OptionsForStage(1).RequiredPatterns,
	)
}

func TestOptionsForUnknownStage(t *testing.T) {
	opts := OptionsForStage(999)
	assert.True(t, opts.CheckSyntax)
	assert.True(t, opts.CheckStyle)
	assert.True(t, opts.CheckLogic)
	assert.Empty(t, opts.RequiredPatterns)
	assert.Empty(t, opts.ForbiddenPatterns)
	assert.Nil(t, StagePatterns(999))
}

func TestOptionsForStageReturnsCopies(t *testing.T) {
	opts := OptionsForStage(1)
	opts.RequiredPatterns[0] = "mutated"
	assert.Equal(t, "def calculate_sum", OptionsForStage(1).RequiredPatterns[0])
}
