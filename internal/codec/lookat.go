package codec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/OCAP2/campath/internal/geo"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultLookAtFovY is used for look-at keyframes without a fovy entry.
const DefaultLookAtFovY = 45.0 * math.Pi / 180

// EncodeLookAt writes one keyframe line per pose:
//
//	Cam000 -D origin=x,y,z -D target=x,y,z -D up=x,y,z -D fovy=deg -D clip=near,far
func EncodeLookAt(w io.Writer, seq core.Sequence) error {
	for i, p := range seq {
		_, err := fmt.Fprintf(w, "Cam%03d -D origin=%s -D target=%s -D up=%s -D fovy=%s -D clip=%s,%s\n",
			i,
			formatVec3(p.Position, ","),
			formatVec3(p.Position.Add(p.Forward()), ","),
			formatVec3(p.Up(), ","),
			formatFloat(mgl64.RadToDeg(p.FovY)),
			formatFloat(p.Near),
			formatFloat(p.Far),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DecodeLookAt reads look-at keyframes. origin and target are required, the
// remaining keys fall back to +Y up, DefaultLookAtFovY and default clip planes.
func DecodeLookAt(r io.Reader, width, height int) (core.Sequence, error) {
	aspect := geo.Aspect(width, height)

	var seq core.Sequence
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parseLookAtLine(line, aspect)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		seq = append(seq, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lookat: %w", err)
	}
	return seq, nil
}

func parseLookAtLine(line string, aspect float64) (core.Pose, error) {
	defs := make(map[string]string)
	fields := strings.Fields(line)
	for i := 1; i < len(fields); i++ {
		def := fields[i]
		switch {
		case def == "-D":
			if i+1 >= len(fields) {
				return core.Pose{}, fmt.Errorf("%w: dangling -D", ErrMalformed)
			}
			i++
			def = fields[i]
		case strings.HasPrefix(def, "-D"):
			def = def[2:]
		default:
			return core.Pose{}, fmt.Errorf("%w: unexpected token %q", ErrMalformed, def)
		}
		key, value, ok := strings.Cut(def, "=")
		if !ok {
			return core.Pose{}, fmt.Errorf("%w: expected key=value, got %q", ErrMalformed, def)
		}
		defs[strings.ToLower(key)] = value
	}

	origin, err := lookAtVec(defs, "origin", nil)
	if err != nil {
		return core.Pose{}, err
	}
	target, err := lookAtVec(defs, "target", nil)
	if err != nil {
		return core.Pose{}, err
	}
	up, err := lookAtVec(defs, "up", []float64{0, 1, 0})
	if err != nil {
		return core.Pose{}, err
	}

	rot, err := geo.LookAt(origin, target, up)
	if err != nil {
		return core.Pose{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	p := core.Pose{
		Position: origin,
		Rotation: rot,
		FovY:     DefaultLookAtFovY,
		Aspect:   aspect,
		Near:     core.DefaultNear,
		Far:      core.DefaultFar,
	}

	if s, ok := defs["fovy"]; ok {
		v, err := parseFloats([]string{s})
		if err != nil {
			return core.Pose{}, err
		}
		p.FovY = mgl64.DegToRad(v[0])
	}
	if s, ok := defs["clip"]; ok {
		v, err := parseFloats(strings.Split(s, ","))
		if err != nil {
			return core.Pose{}, err
		}
		if len(v) != 2 {
			return core.Pose{}, fmt.Errorf("%w: clip needs near,far", ErrMalformed)
		}
		p.Near, p.Far = v[0], v[1]
	}
	return p, nil
}

func lookAtVec(defs map[string]string, key string, fallback []float64) (mgl64.Vec3, error) {
	s, ok := defs[key]
	if !ok {
		if fallback == nil {
			return mgl64.Vec3{}, fmt.Errorf("%w: missing %s", ErrMalformed, key)
		}
		return mgl64.Vec3{fallback[0], fallback[1], fallback[2]}, nil
	}
	v, err := parseFloats(strings.Split(s, ","))
	if err != nil {
		return mgl64.Vec3{}, err
	}
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%w: %s needs 3 components", ErrMalformed, key)
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// LoadLookAt reads a .lookat file.
func LoadLookAt(path string, width, height int) (core.Sequence, error) {
	return openDecode(path, func(r io.Reader) (core.Sequence, error) {
		return DecodeLookAt(r, width, height)
	})
}

// SaveLookAt writes a .lookat file.
func SaveLookAt(path string, seq core.Sequence) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeLookAt(w, seq)
	})
}
