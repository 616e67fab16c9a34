package codec

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/disintegration/imaging"
)

// FRIBR export layout inside the target directory.
const (
	FRIBRBundleFile = "path.rd.out"
	FRIBRListFile   = "list_images.txt"
	FRIBRImagesDir  = "images"
)

// FRIBRImageName is the placeholder image name for pose i.
func FRIBRImageName(i int) string {
	return fmt.Sprintf("%08d.jpg", i)
}

// ExportFRIBR writes the path as a bundle plus one blank width x height image
// per pose, since FRIBR expects every bundle camera to have an image on disk.
func ExportFRIBR(dir string, seq core.Sequence, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid FRIBR resolution %dx%d", width, height)
	}
	imagesDir := filepath.Join(dir, FRIBRImagesDir)
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := SaveBundle(filepath.Join(dir, FRIBRBundleFile), seq, height, 1); err != nil {
		return err
	}

	err := writeFile(filepath.Join(dir, FRIBRListFile), func(w io.Writer) error {
		for i := range seq {
			if _, err := fmt.Fprintf(w, "%s/%s\n", FRIBRImagesDir, FRIBRImageName(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	blank := imaging.New(width, height, color.Black)
	for i := range seq {
		path := filepath.Join(imagesDir, FRIBRImageName(i))
		if err := imaging.Save(blank, path); err != nil {
			return fmt.Errorf("failed to write placeholder %s: %w", path, err)
		}
	}
	return nil
}
