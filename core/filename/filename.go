// Package filename turns client-supplied file names into safe path elements.
package filename

import (
	"path/filepath"
	"strings"
)

const MaxLen = 100

// Sanitize keeps [A-Za-z0-9._-], replaces everything else with '_', drops
// directory parts and leading dots, and caps the length at MaxLen while
// preserving the extension.
func Sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" {
		clean = "document"
	}

	if len(clean) > MaxLen {
		ext := filepath.Ext(clean)
		if len(ext) >= MaxLen {
			ext = ""
		}
		clean = clean[:MaxLen-len(ext)] + ext
	}
	return clean
}
