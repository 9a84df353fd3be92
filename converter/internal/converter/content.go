package converter

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/you-humble/printq/core/grpc/converterpb"
)

var (
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")
	rtfMagic = []byte(`{\rtf`)
)

var wordMagic = map[string][]byte{
	".doc":  oleMagic,
	".docx": zipMagic,
	".odt":  zipMagic,
	".rtf":  rtfMagic,
}

// IsWordDocument reports whether name carries a word-processor extension.
func IsWordDocument(name string) bool {
	_, ok := wordMagic[strings.ToLower(filepath.Ext(name))]
	return ok
}

// CheckContent verifies that data starts with the signature its extension
// promises.
func CheckContent(name string, data []byte) error {
	ext := strings.ToLower(filepath.Ext(name))
	magic, ok := wordMagic[ext]
	if !ok {
		return converterpb.ErrUnsupportedMediaType.WithDetail("unsupported file type " + quoteExt(ext))
	}
	if !bytes.HasPrefix(data, magic) {
		return converterpb.ErrUnsupportedMediaType.WithDetail("content does not match " + ext)
	}
	return nil
}

func quoteExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
