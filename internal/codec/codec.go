// Package codec converts camera paths between the canonical pose sequence and
// the on-disk formats understood by reconstruction and rendering tools.
//
// Decoders never return a partial sequence: poses are staged locally and
// handed back only when the whole input parsed.
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrUnknownFormat is returned when a path's extension maps to no codec.
	ErrUnknownFormat = errors.New("unknown camera path format")

	// ErrMalformed is returned for content that cannot be decoded.
	ErrMalformed = errors.New("malformed camera path")

	// ErrMissingCameras is returned when a COLMAP images.txt has no cameras.txt beside it.
	ErrMissingCameras = errors.New("colmap cameras.txt not found")
)

// Format names a supported camera path layout.
type Format string

const (
	FormatNative Format = "bytes"
	FormatBundle Format = "bundle"
	FormatColmap Format = "colmap"
	FormatLookAt Format = "lookat"
	FormatFRIBR  Format = "fribr"
)

// Source returns the core.Path source tag for a format.
func (f Format) Source() string {
	switch f {
	case FormatBundle, FormatFRIBR:
		return core.SourceBundle
	case FormatColmap:
		return core.SourceColmap
	case FormatLookAt:
		return core.SourceLookAt
	default:
		return core.SourceNative
	}
}

// FormatFromPath picks a format from the file extension alone.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bytes", ".path":
		return FormatNative, nil
	case ".out":
		return FormatBundle, nil
	case ".txt":
		return FormatColmap, nil
	case ".lookat":
		return FormatLookAt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// ParseFormat validates a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatNative, FormatBundle, FormatColmap, FormatLookAt, FormatFRIBR:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// LoadAny reads a camera path choosing the decoder by extension.
// width and height are used by formats storing pixel focal lengths.
func LoadAny(path string, width, height int) (core.Sequence, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}

	var seq core.Sequence
	switch format {
	case FormatNative:
		seq, err = LoadNative(path)
	case FormatBundle:
		seq, err = LoadBundle(path, width, height)
	case FormatColmap:
		seq, err = LoadColmap(path, width, height)
	case FormatLookAt:
		seq, err = LoadLookAt(path, width, height)
	}
	if err != nil {
		return nil, "", err
	}
	return seq, format, nil
}

// SaveOptions carries the per-format parameters for SaveAny.
type SaveOptions struct {
	Width  int
	Height int
	Step   int
}

// SaveAny writes seq in the given format. Colmap and FRIBR write into a directory.
func SaveAny(path string, format Format, seq core.Sequence, opts SaveOptions) error {
	switch format {
	case FormatNative:
		return SaveNative(path, seq)
	case FormatBundle:
		return SaveBundle(path, seq, opts.Height, opts.Step)
	case FormatColmap:
		return SaveColmap(path, seq, opts.Width, opts.Height)
	case FormatLookAt:
		return SaveLookAt(path, seq)
	case FormatFRIBR:
		return ExportFRIBR(path, seq, opts.Width, opts.Height)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func openDecode(path string, decode func(r io.Reader) (core.Sequence, error)) (core.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	seq, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

// writeFile creates path and surfaces write, flush and close failures.
func writeFile(path string, encode func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := encode(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatVec3(v mgl64.Vec3, sep string) string {
	return formatFloat(v[0]) + sep + formatFloat(v[1]) + sep + formatFloat(v[2])
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: bad number %q", ErrMalformed, s)
		}
		out[i] = v
	}
	return out, nil
}
