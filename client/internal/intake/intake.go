// Package intake accepts local documents into the pending print queue.
package intake

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindWord  Kind = "word"
)

var extensions = map[string]Kind{
	".pdf":  KindPDF,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".webp": KindImage,
	".doc":  KindWord,
	".docx": KindWord,
	".odt":  KindWord,
	".rtf":  KindWord,
}

// KindOf classifies name by its extension, case-insensitively.
func KindOf(name string) (Kind, bool) {
	k, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return k, ok
}

type Key struct {
	Name string
	Size int64
}

type Candidate struct {
	Name string
	Size int64
	Kind Kind
	Open func() (io.ReadCloser, error)
}

func (c Candidate) Key() Key {
	return Key{Name: c.Name, Size: c.Size}
}

// FromPath builds a candidate for a regular file on disk.
func FromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Candidate{}, fmt.Errorf("%s is not a regular file", path)
	}

	name := filepath.Base(path)
	kind, _ := KindOf(name)

	return Candidate{
		Name: name,
		Size: info.Size(),
		Kind: kind,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Filter drops candidates of unsupported kinds and duplicates of files already
// queued or seen earlier in cands. The rest are returned in arrival order.
func Filter(q *Queue, cands []Candidate) []Candidate {
	seen := make(map[Key]struct{}, len(cands))
	accepted := make([]Candidate, 0, len(cands))

	for _, c := range cands {
		kind, ok := KindOf(c.Name)
		if !ok {
			continue
		}
		c.Kind = kind

		k := c.Key()
		if _, dup := seen[k]; dup || q.Has(k) {
			continue
		}
		seen[k] = struct{}{}
		accepted = append(accepted, c)
	}

	return accepted
}
