package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims and drops blanks", input: []string{"  a:9092 ", "", "   "}, expected: []string{"a:9092"}},
		{name: "keeps first-seen order", input: []string{"b", "a", "b", "c", "a"}, expected: []string{"b", "a", "c"}},
		{name: "case sensitive", input: []string{"Foo", "foo"}, expected: []string{"Foo", "foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Dedupe(tt.input))
		})
	}
}

func TestDedupeFold(t *testing.T) {
	assert.Equal(t, []string{"example.com", "example.org"},
		DedupeFold([]string{"Example.COM", " example.com", "example.org"}))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList("a, ,b,a"))
	assert.Empty(t, SplitList(""))
}
