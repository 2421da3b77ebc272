package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "12.500", formatSeconds(12.5))
	assert.Equal(t, "0.000", formatSeconds(0))
}

func TestWrapText(t *testing.T) {
	wrapped := wrapText("the quick brown fox jumps over the lazy dog", 15)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), 15)
	}
	assert.Equal(t, "the quick brown fox jumps over the lazy dog",
		strings.ReplaceAll(wrapped, "\n", " "))

	assert.Equal(t, "unbreakablelongword", wrapText("unbreakablelongword", 5))
	assert.Equal(t, "", wrapText("", 10))
}

func TestPythonString(t *testing.T) {
	assert.Equal(t, `"hello"`, pythonString("hello"))
	assert.Equal(t, `"line one\nline two"`, pythonString("line one\nline two"))
	assert.Equal(t, `"say \"hi\""`, pythonString(`say "hi"`))
	assert.Equal(t, `"back\\slash"`, pythonString(`back\slash`))
}
