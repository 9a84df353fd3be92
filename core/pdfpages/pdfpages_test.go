package pdfpages

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/printq/core/pdfpages/pdftest"
)

func TestCount(t *testing.T) {
	for _, pages := range []int{1, 3, 12} {
		n, err := Count(bytes.NewReader(pdftest.Build(pages)))
		require.NoError(t, err)
		assert.Equal(t, pages, n)
	}
}

func TestCountGarbage(t *testing.T) {
	_, err := Count(bytes.NewReader([]byte("definitely not a pdf")))
	assert.Error(t, err)
}

func TestCountFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Build(2), 0o600))

	n, err := CountFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = CountFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
