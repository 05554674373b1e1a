package validator

// stageProfile is the hand-curated expectation set for one stage's target
// solution shape.
type stageProfile struct {
	required  []string
	forbidden []string
}

var stageProfiles = map[int]stageProfile{
	1:  {required: []string{"def calculate_sum", "for num in numbers", "sum += num", "return sum"}},
	2:  {required: []string{"def reverse_string", "[::-1]", "return"}, forbidden: []string{"reversed("}},
	3:  {required: []string{"def find_max", "max(", "return"}},
	4:  {required: []string{"def count_vowels", "for char in text", "count += 1", "return count"}},
	5:  {required: []string{"def get_evens", "% 2 == 0", "return"}},
	6:  {required: []string{"def fibonacci", "for _ in range", "a, b = b, a + b", "return"}},
	7:  {required: []string{"def is_prime", "int(n**0.5)", "% i == 0", "return"}},
	8:  {required: []string{"def square_numbers", "[x**2 for x in", "return"}},
	9:  {required: []string{"def most_frequent_word", "split(", "max(counts, key=counts.get)", "return"}},
	10: {required: []string{"def format_title", "title()", "return"}},
	11: {required: []string{"def count_letter", "count(", "return"}},
	12: {required: []string{"def swap", "a, b = b, a", "return a, b"}},
	13: {required: []string{"def countdown", "while ", "print("}},
	14: {required: []string{"def parse_csv", "split(", "dict(zip(", "return"}},
	15: {
		required:  []string{"def bubble_sort", "for i in range", "for j in range(0, n - i - 1)", "arr[j] > arr[j + 1]"},
		forbidden: []string{".sort(", "sorted("},
	},
	16: {required: []string{"def factorial", "if n <= 1", "n * factorial(n - 1)"}},
	17: {required: []string{"def binary_search", "while low <= high", "mid = (low + high) // 2", "len("}},
	18: {required: []string{"import re", "re.findall(", "def extract_emails"}},
	19: {required: []string{"class Dog", "def __init__(self", "self.name = name", "def bark"}},
	20: {required: []string{"def timer", "@", "import time", "return wrapper"}},
}

// classifiedPatterns holds every profile literal classified at startup.
var classifiedPatterns = func() map[string]Pattern {
	out := make(map[string]Pattern)
	for _, profile := range stageProfiles {
		for _, literal := range profile.required {
			if _, ok := out[literal]; !ok {
				out[literal] = Classify(literal)
			}
		}
	}
	return out
}()

func lookupPattern(literal string) Pattern {
	if p, ok := classifiedPatterns[literal]; ok {
		return p
	}
	return Classify(literal)
}

// OptionsForStage builds the validation options for a stage. Every pass is
// enabled; unknown stages get no stage-specific patterns.
func OptionsForStage(stageID int) ValidationOptions {
	opts := ValidationOptions{
		CheckSyntax: true,
		CheckStyle:  true,
		CheckLogic:  true,
	}
	if profile, ok := stageProfiles[stageID]; ok {
		opts.RequiredPatterns = append([]string(nil), profile.required...)
		opts.ForbiddenPatterns = append([]string(nil), profile.forbidden...)
	}
	return opts
}

// StagePatterns returns the classified required patterns of a stage.
func StagePatterns(stageID int) []Pattern {
	profile, ok := stageProfiles[stageID]
	if !ok {
		return nil
	}
	out := make([]Pattern, 0, len(profile.required))
	for _, literal := range profile.required {
		out = append(out, lookupPattern(literal))
	}
	return out
}
