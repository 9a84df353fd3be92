package filename

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.docx", "report.docx"},
		{"my report (final).docx", "my_report__final_.docx"},
		{"../../etc/passwd.doc", "passwd.doc"},
		{`C:\Users\me\cv.rtf`, "cv.rtf"},
		{"...hidden.odt", "hidden.odt"},
		{"", "document"},
		{"отчёт.docx", "_____.docx"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	long := Sanitize(strings.Repeat("a", 300) + ".docx")
	assert.Len(t, long, MaxLen)
	assert.True(t, strings.HasSuffix(long, ".docx"))

	noExt := Sanitize(strings.Repeat("b", 150))
	assert.Len(t, noExt, MaxLen)
}
