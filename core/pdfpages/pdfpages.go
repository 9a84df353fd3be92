// Package pdfpages counts pages of PDF documents with pdfcpu.
package pdfpages

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNoPages = errors.New("pdf has no pages")

var disableConfigDir sync.Once

// newConfig returns a fresh relaxed configuration per call; pdfcpu may mutate
// the configuration it is handed.
func newConfig() *model.Configuration {
	disableConfigDir.Do(func() { model.ConfigPath = "disable" })

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func Count(rs io.ReadSeeker) (int, error) {
	n, err := api.PageCount(rs, newConfig())
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	if n < 1 {
		return 0, ErrNoPages
	}
	return n, nil
}

func CountFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	return Count(f)
}
