package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/OCAP2/campath/internal/geo"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/quat"
)

// COLMAP file names inside a sparse model directory.
const (
	ColmapImagesFile  = "images.txt"
	ColmapCamerasFile = "cameras.txt"
)

// colmapIntrinsics is the part of a cameras.txt entry needed for a pose.
type colmapIntrinsics struct {
	height int
	fy     float64
}

type colmapImage struct {
	id       int
	cameraID int
	q        quat.Number
	t        mgl64.Vec3
}

// colmapFocalY returns the index of the vertical focal length in PARAMS.
func colmapFocalY(model string) (int, bool) {
	switch model {
	case "SIMPLE_PINHOLE", "SIMPLE_RADIAL", "RADIAL", "SIMPLE_RADIAL_FISHEYE", "RADIAL_FISHEYE":
		return 0, true
	case "PINHOLE", "OPENCV", "OPENCV_FISHEYE", "FULL_OPENCV", "FOV", "THIN_PRISM_FISHEYE":
		return 1, true
	default:
		return 0, false
	}
}

func decodeColmapCameras(r io.Reader) (map[int]colmapIntrinsics, error) {
	cams := make(map[int]colmapIntrinsics)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, fmt.Errorf("cameras line %d: %w: expected ID MODEL WIDTH HEIGHT PARAMS", lineNo, ErrMalformed)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("cameras line %d: %w: bad camera id %q", lineNo, ErrMalformed, fields[0])
		}
		idx, ok := colmapFocalY(fields[1])
		if !ok {
			return nil, fmt.Errorf("cameras line %d: %w: unsupported model %q", lineNo, ErrMalformed, fields[1])
		}
		height, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("cameras line %d: %w: bad height %q", lineNo, ErrMalformed, fields[3])
		}
		params, err := parseFloats(fields[4:])
		if err != nil {
			return nil, fmt.Errorf("cameras line %d: %w", lineNo, err)
		}
		if idx >= len(params) || params[idx] <= 0 {
			return nil, fmt.Errorf("cameras line %d: %w: missing focal length", lineNo, ErrMalformed)
		}
		cams[id] = colmapIntrinsics{height: height, fy: params[idx]}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cameras: %w", err)
	}
	return cams, nil
}

func decodeColmapImages(r io.Reader) ([]colmapImage, error) {
	var images []colmapImage
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	expectPoints := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		// every image header is followed by its POINTS2D line, which may be empty
		if expectPoints {
			expectPoints = false
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 10 {
			return nil, fmt.Errorf("images line %d: %w: expected IMAGE_ID QW QX QY QZ TX TY TZ CAMERA_ID NAME", lineNo, ErrMalformed)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("images line %d: %w: bad image id %q", lineNo, ErrMalformed, fields[0])
		}
		v, err := parseFloats(fields[1:8])
		if err != nil {
			return nil, fmt.Errorf("images line %d: %w", lineNo, err)
		}
		camID, err := strconv.Atoi(fields[8])
		if err != nil {
			return nil, fmt.Errorf("images line %d: %w: bad camera id %q", lineNo, ErrMalformed, fields[8])
		}

		images = append(images, colmapImage{
			id:       id,
			cameraID: camID,
			q:        quat.Number{Real: v[0], Imag: v[1], Jmag: v[2], Kmag: v[3]},
			t:        mgl64.Vec3{v[4], v[5], v[6]},
		})
		expectPoints = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read images: %w", err)
	}
	return images, nil
}

// DecodeColmap resolves every image of images.txt against the intrinsics in
// cameras.txt. Poses are ordered by image id. The vertical field of view uses
// the intrinsics' own height when present and the supplied height otherwise.
func DecodeColmap(images, cameras io.Reader, width, height int) (core.Sequence, error) {
	cams, err := decodeColmapCameras(cameras)
	if err != nil {
		return nil, err
	}
	imgs, err := decodeColmapImages(images)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].id < imgs[j].id })

	aspect := geo.Aspect(width, height)
	seq := make(core.Sequence, 0, len(imgs))
	for _, img := range imgs {
		intr, ok := cams[img.cameraID]
		if !ok {
			return nil, fmt.Errorf("%w: image %d references unknown camera %d", ErrMalformed, img.id, img.cameraID)
		}
		pos, rot, err := geo.FromColmap(img.q, img.t)
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %v", ErrMalformed, img.id, err)
		}
		h := intr.height
		if h <= 0 {
			h = height
		}
		seq = append(seq, core.Pose{
			Position: pos,
			Rotation: rot,
			FovY:     geo.FovYFromFocal(intr.fy, h),
			Aspect:   aspect,
			Near:     core.DefaultNear,
			Far:      core.DefaultFar,
		})
	}
	return seq, nil
}

// EncodeColmap writes one PINHOLE camera and one image per pose.
func EncodeColmap(images, cameras io.Writer, seq core.Sequence, width, height int) error {
	if _, err := fmt.Fprintf(cameras,
		"# Camera list with one line of data per camera:\n"+
			"#   CAMERA_ID, MODEL, WIDTH, HEIGHT, PARAMS[]\n"+
			"# Number of cameras: %d\n", len(seq)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(images,
		"# Image list with two lines of data per image:\n"+
			"#   IMAGE_ID, QW, QX, QY, QZ, TX, TY, TZ, CAMERA_ID, NAME\n"+
			"#   POINTS2D[] as (X, Y, POINT3D_ID)\n"+
			"# Number of images: %d, mean observations per image: 0\n", len(seq)); err != nil {
		return err
	}

	for i, p := range seq {
		id := i + 1
		focal := geo.FocalFromFovY(p.FovY, height)
		if _, err := fmt.Fprintf(cameras, "%d PINHOLE %d %d %s %s %s %s\n",
			id, width, height,
			formatFloat(focal), formatFloat(focal),
			formatFloat(float64(width)/2), formatFloat(float64(height)/2),
		); err != nil {
			return err
		}

		q, t := geo.ToColmap(p.Position, p.Rotation)
		if _, err := fmt.Fprintf(images, "%d %s %s %s %s %s %d %08d.png\n\n",
			id,
			formatFloat(q.Real), formatFloat(q.Imag), formatFloat(q.Jmag), formatFloat(q.Kmag),
			formatVec3(t, " "),
			id, i,
		); err != nil {
			return err
		}
	}
	return nil
}

// LoadColmap reads images.txt at path and the cameras.txt next to it.
func LoadColmap(path string, width, height int) (core.Sequence, error) {
	camPath := filepath.Join(filepath.Dir(path), ColmapCamerasFile)
	cf, err := os.Open(camPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingCameras, camPath)
		}
		return nil, fmt.Errorf("failed to open %s: %w", camPath, err)
	}
	defer cf.Close()

	return openDecode(path, func(r io.Reader) (core.Sequence, error) {
		return DecodeColmap(r, bufio.NewReader(cf), width, height)
	})
}

// SaveColmap writes images.txt and cameras.txt into dir, creating it if needed.
func SaveColmap(dir string, seq core.Sequence, width, height int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// cameras.txt is written after images.txt succeeds
	var camBuf strings.Builder
	err := writeFile(filepath.Join(dir, ColmapImagesFile), func(w io.Writer) error {
		return EncodeColmap(w, &camBuf, seq, width, height)
	})
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, ColmapCamerasFile), func(w io.Writer) error {
		_, err := io.WriteString(w, camBuf.String())
		return err
	})
}
