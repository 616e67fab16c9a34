package codec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportFRIBR(t *testing.T) {
	dir := t.TempDir()
	seq := testSequence()

	require.NoError(t, ExportFRIBR(dir, seq, 64, 36))

	got, err := LoadBundle(filepath.Join(dir, FRIBRBundleFile), 64, 36)
	require.NoError(t, err)
	assertPosesClose(t, seq, got, 1e-9)

	list, err := os.ReadFile(filepath.Join(dir, FRIBRListFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(list)), "\n")
	require.Len(t, lines, len(seq))
	assert.Equal(t, "images/00000000.jpg", lines[0])

	entries, err := os.ReadDir(filepath.Join(dir, FRIBRImagesDir))
	require.NoError(t, err)
	assert.Len(t, entries, len(seq))

	img, err := imaging.Open(filepath.Join(dir, FRIBRImagesDir, FRIBRImageName(len(seq)-1)))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 36, img.Bounds().Dy())
}

func TestExportFRIBR_InvalidResolution(t *testing.T) {
	err := ExportFRIBR(t.TempDir(), testSequence(), 0, 36)
	assert.Error(t, err)
}
