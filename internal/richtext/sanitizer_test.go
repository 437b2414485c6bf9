package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizerHTML(t *testing.T) {
	s := NewSanitizer()

	out := s.HTML(`<p>Printer <strong>down</strong></p><script>alert(1)</script>`)
	assert.Equal(t, "<p>Printer <strong>down</strong></p>", out)

	out = s.HTML(`<a href="javascript:alert(1)" onclick="x()">link</a>`)
	assert.NotContains(t, out, "javascript")
	assert.NotContains(t, out, "onclick")
}

func TestSanitizerIsBlank(t *testing.T) {
	s := NewSanitizer()

	assert.True(t, s.IsBlank(""))
	assert.True(t, s.IsBlank("<p></p>"))
	assert.True(t, s.IsBlank("<p>  </p><br>"))
	assert.False(t, s.IsBlank("<p>ok</p>"))
}

func TestSanitizerPlain(t *testing.T) {
	s := NewSanitizer()
	assert.Equal(t, "Printer down", s.Plain("<p>Printer <em>down</em></p>"))
}
