package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"  Hello\tWorld \n", "hello world"},
		{"def  Foo(a,\n   b):", "def foo(a, b):"},
		{"ALREADY normal", "already normal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"\t\tfor i in range(10):\n\t\t\tprint(i)\n",
		"Ünïcödé   TEXT\r\nwith\vodd\fspace",
		"def calculate_sum(numbers):\n    sum = 0\n",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "a,b=b,a+b", Compact("a, b = b, a + b"))
	assert.Equal(t, "", Compact(" \n\t "))
}
