package memory

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/campath/internal/geo"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// ExportVersion is written to every export.
const ExportVersion = 1

// poseFields is the length of one entry of PathExport.Poses.
const poseFields = 11

// PathExport is the root JSON structure of an exported path.
type PathExport struct {
	Version    int       `json:"version"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	FovRange   []float64 `json:"fovRange"`
	Length     float64   `json:"length"`
	Trajectory string    `json:"trajectory,omitempty"`
	// Poses are [px, py, pz, qx, qy, qz, qw, fovY, aspect, near, far]
	Poses [][]float64 `json:"poses"`
}

// BuildExport converts p to its export form.
func BuildExport(p *core.Path) PathExport {
	lo, hi := p.Poses.FovRange()
	export := PathExport{
		Version:    ExportVersion,
		Name:       p.Name,
		Source:     p.Source,
		Width:      p.Width,
		Height:     p.Height,
		CreatedAt:  p.CreatedAt,
		FovRange:   []float64{lo, hi},
		Length:     p.Poses.Length(),
		Trajectory: geo.TrajectoryWKT(p.Poses),
		Poses:      make([][]float64, 0, len(p.Poses)),
	}
	for _, pose := range p.Poses {
		export.Poses = append(export.Poses, []float64{
			pose.Position[0], pose.Position[1], pose.Position[2],
			pose.Rotation.V[0], pose.Rotation.V[1], pose.Rotation.V[2], pose.Rotation.W,
			pose.FovY, pose.Aspect, pose.Near, pose.Far,
		})
	}
	return export
}

// Path converts the export back to a core path.
func (e PathExport) Path() (*core.Path, error) {
	if e.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %d", e.Version)
	}
	if e.Name == "" {
		return nil, fmt.Errorf("export has no path name")
	}

	p := &core.Path{
		Name:      e.Name,
		Source:    e.Source,
		Width:     e.Width,
		Height:    e.Height,
		CreatedAt: e.CreatedAt,
		Poses:     make(core.Sequence, len(e.Poses)),
	}
	for i, v := range e.Poses {
		if len(v) != poseFields {
			return nil, fmt.Errorf("pose %d has %d fields, want %d", i, len(v), poseFields)
		}
		p.Poses[i] = core.Pose{
			Position: mgl64.Vec3{v[0], v[1], v[2]},
			Rotation: mgl64.Quat{W: v[6], V: mgl64.Vec3{v[3], v[4], v[5]}},
			FovY:     v[7],
			Aspect:   v[8],
			Near:     v[9],
			Far:      v[10],
		}
	}
	return p, nil
}

// WriteExport encodes p as JSON to w, gzip compressed when compress is set.
func WriteExport(w io.Writer, p *core.Path, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(BuildExport(p))
	}
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(BuildExport(p)); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// ReadExport decodes an export written by WriteExport. Gzip input is detected.
func ReadExport(r io.Reader) (*core.Path, error) {
	br := bufio.NewReader(r)
	src := io.Reader(br)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		src = gz
	}

	var export PathExport
	if err := json.NewDecoder(src).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return export.Path()
}

// exportJSON writes one path to the output directory
func (b *Backend) exportJSON(p *core.Path) error {
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(p.Name, b.cfg.CompressOutput))

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteExport(f, p, b.cfg.CompressOutput); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return f.Close()
}

func readExportFile(path string) (*core.Path, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadExport(f)
}

// exportFileName derives a file name from the path name. The name is
// query-escaped so distinct names never share a file.
func exportFileName(name string, compressed bool) string {
	safe := url.QueryEscape(name)
	if compressed {
		return safe + ".json.gz"
	}
	return safe + ".json"
}
