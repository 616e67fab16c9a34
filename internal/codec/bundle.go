package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OCAP2/campath/internal/geo"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const bundleHeader = "# Bundle file v0.3"

// bundleCameraFields is f k1 k2, three rotation rows and the translation.
const bundleCameraFields = 15

// EncodeBundle writes every step-th pose as a Bundler v0.3 camera with no points.
// Focal lengths are in pixels for an image of the given height.
func EncodeBundle(w io.Writer, seq core.Sequence, height, step int) error {
	cams := seq.Every(step)

	if _, err := fmt.Fprintf(w, "%s\n%d 0\n", bundleHeader, len(cams)); err != nil {
		return err
	}
	for _, p := range cams {
		r, t := geo.ToBundler(p.Position, p.Rotation)
		focal := geo.FocalFromFovY(p.FovY, height)
		row0, row1, row2 := r.Rows()

		_, err := fmt.Fprintf(w, "%s 0 0\n%s\n%s\n%s\n%s\n",
			formatFloat(focal),
			formatVec3(row0, " "),
			formatVec3(row1, " "),
			formatVec3(row2, " "),
			formatVec3(t, " "),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DecodeBundle reads the cameras of a Bundler v0.3 file. Cameras with a zero
// focal length were not registered by the reconstruction and are skipped.
func DecodeBundle(r io.Reader, width, height int) (core.Sequence, error) {
	tokens, err := bundleTokens(r)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: missing camera count", ErrMalformed)
	}

	nCams, err := strconv.Atoi(tokens[0])
	if err != nil || nCams < 0 {
		return nil, fmt.Errorf("%w: bad camera count %q", ErrMalformed, tokens[0])
	}
	if _, err := strconv.Atoi(tokens[1]); err != nil {
		return nil, fmt.Errorf("%w: bad point count %q", ErrMalformed, tokens[1])
	}

	body := tokens[2:]
	if nCams > len(body)/bundleCameraFields {
		return nil, fmt.Errorf("%w: expected %d cameras, found data for %d",
			ErrMalformed, nCams, len(body)/bundleCameraFields)
	}

	aspect := geo.Aspect(width, height)
	seq := make(core.Sequence, 0, nCams)
	for i := 0; i < nCams; i++ {
		v, err := parseFloats(body[i*bundleCameraFields : (i+1)*bundleCameraFields])
		if err != nil {
			return nil, fmt.Errorf("camera %d: %w", i, err)
		}
		focal := v[0]
		if focal == 0 {
			continue
		}
		if focal < 0 {
			return nil, fmt.Errorf("%w: camera %d has negative focal length", ErrMalformed, i)
		}

		rot := mgl64.Mat3FromRows(
			mgl64.Vec3{v[3], v[4], v[5]},
			mgl64.Vec3{v[6], v[7], v[8]},
			mgl64.Vec3{v[9], v[10], v[11]},
		)
		pos, q := geo.FromBundler(rot, mgl64.Vec3{v[12], v[13], v[14]})
		seq = append(seq, core.Pose{
			Position: pos,
			Rotation: q,
			FovY:     geo.FovYFromFocal(focal, height),
			Aspect:   aspect,
			Near:     core.DefaultNear,
			Far:      core.DefaultFar,
		})
	}
	return seq, nil
}

// bundleTokens returns the whitespace separated fields outside comment lines.
func bundleTokens(r io.Reader) ([]string, error) {
	var tokens []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		tokens = append(tokens, strings.Fields(line)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	return tokens, nil
}

// LoadBundle reads a bundle file.
func LoadBundle(path string, width, height int) (core.Sequence, error) {
	return openDecode(path, func(r io.Reader) (core.Sequence, error) {
		return DecodeBundle(r, width, height)
	})
}

// SaveBundle writes a bundle file keeping every step-th pose.
func SaveBundle(path string, seq core.Sequence, height, step int) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeBundle(w, seq, height, step)
	})
}
