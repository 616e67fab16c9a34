package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// nativeRecord is the fixed little-endian layout of one pose in a .bytes file.
// There is no header; the record count is the file size over NativeRecordSize.
type nativeRecord struct {
	Position [3]float64
	Rotation [4]float64 // x, y, z, w
	FovY     float64
	Aspect   float64
	Near     float64
	Far      float64
}

// NativeRecordSize is the encoded size of one pose.
const NativeRecordSize = 11 * 8

// EncodeNative writes seq as consecutive fixed-size records.
func EncodeNative(w io.Writer, seq core.Sequence) error {
	for i, p := range seq {
		rec := nativeRecord{
			Position: [3]float64{p.Position[0], p.Position[1], p.Position[2]},
			Rotation: [4]float64{p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2], p.Rotation.W},
			FovY:     p.FovY,
			Aspect:   p.Aspect,
			Near:     p.Near,
			Far:      p.Far,
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("failed to write pose %d: %w", i, err)
		}
	}
	return nil
}

// DecodeNative reads records until EOF. A trailing partial record is malformed.
func DecodeNative(r io.Reader) (core.Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read poses: %w", err)
	}
	if len(data)%NativeRecordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformed, len(data), NativeRecordSize)
	}

	n := len(data) / NativeRecordSize
	seq := make(core.Sequence, 0, n)
	br := bytes.NewReader(data)
	for i := 0; i < n; i++ {
		var rec nativeRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: pose %d: %v", ErrMalformed, i, err)
		}
		seq = append(seq, core.Pose{
			Position: mgl64.Vec3(rec.Position),
			Rotation: mgl64.Quat{W: rec.Rotation[3], V: mgl64.Vec3{rec.Rotation[0], rec.Rotation[1], rec.Rotation[2]}},
			FovY:     rec.FovY,
			Aspect:   rec.Aspect,
			Near:     rec.Near,
			Far:      rec.Far,
		})
	}
	return seq, nil
}

// LoadNative reads a .bytes file.
func LoadNative(path string) (core.Sequence, error) {
	return openDecode(path, DecodeNative)
}

// SaveNative writes a .bytes file.
func SaveNative(path string, seq core.Sequence) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeNative(w, seq)
	})
}
