package tddf_test

import (
	"testing"

	"github.com/kurochkinivan/tddf_pipeline/internal/tddf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single line without newline", input: "abc", want: []string{"abc"}},
		{name: "single trailing newline", input: "abc\n", want: []string{"abc"}},
		{name: "trailing blank lines", input: "a\nb\n\n\n", want: []string{"a", "b"}},
		{name: "interior blank lines kept", input: "a\n\nb\n", want: []string{"a", "", "b"}},
		{name: "crlf", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "only newlines", input: "\n\n", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lines := tddf.SplitLines([]byte(tt.input))
			require.Len(t, lines, len(tt.want))

			for i, line := range lines {
				assert.Equal(t, i+1, line.Number)
				assert.Equal(t, tt.want[i], line.Text)
				assert.Equal(t, len(tt.want[i]), line.Length)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean", input: "01234567890", want: "01234567890"},
		{name: "nul", input: "ab\x00cd", want: "ab cd"},
		{name: "invalid utf8", input: "ab\xffcd", want: "ab?cd"},
		{name: "invalid run keeps width", input: "a\xff\xfeb", want: "a??b"},
		{name: "multibyte kept", input: "añb", want: "añb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tddf.Sanitize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.input))
		})
	}
}
