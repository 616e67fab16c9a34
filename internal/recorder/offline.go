package recorder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/disintegration/imaging"
)

// ErrNoView is returned by SaveImage before SetView was called.
var ErrNoView = errors.New("no view attached")

// View renders a pose off-screen.
type View interface {
	Render(ctx context.Context, pose core.Pose, width, height int) (image.Image, error)
}

// ViewFunc adapts a function to View.
type ViewFunc func(ctx context.Context, pose core.Pose, width, height int) (image.Image, error)

func (f ViewFunc) Render(ctx context.Context, pose core.Pose, width, height int) (image.Image, error) {
	return f(ctx, pose, width, height)
}

// OfflineFrameName returns the file name of frame i.
func OfflineFrameName(prefix string, i int, format string) string {
	return fmt.Sprintf("%s%08d.%s", prefix, i, strings.TrimPrefix(format, "."))
}

// RecordOfflinePath renders every pose in order through view and writes
// outDir/<prefix><index>.<ImageFormat>. The playback cursor is not used.
// ctx is checked before each pose.
func (r *Recorder) RecordOfflinePath(ctx context.Context, outDir string, view View, prefix string) error {
	if view == nil {
		return ErrNoView
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	seq := r.seq
	r.logger.Info("Offline export started", "dir", outDir, "poses", len(seq))
	for i, pose := range seq {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("offline export stopped at pose %d: %w", i, err)
		}
		name := filepath.Join(outDir, OfflineFrameName(prefix, i, r.opts.ImageFormat))
		if err := r.render(ctx, view, pose, name, r.opts.Width, r.opts.Height); err != nil {
			return fmt.Errorf("pose %d: %w", i, err)
		}
		r.metrics.offline.Add(ctx, 1)
	}
	r.logger.Info("Offline export finished", "dir", outDir, "frames", len(seq))
	return nil
}

// SetView attaches the view used by SaveImage. datasetPath names the scene
// and prefixes the saved images.
func (r *Recorder) SetView(view View, datasetPath string) {
	r.view = view
	r.datasetPath = datasetPath
}

// SaveImage renders pose with the attached view and writes it into outDir.
// It returns the written file's path.
func (r *Recorder) SaveImage(ctx context.Context, outDir string, pose core.Pose, width, height int) (string, error) {
	if r.view == nil {
		return "", ErrNoView
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	prefix := ""
	if r.datasetPath != "" {
		prefix = filepath.Base(r.datasetPath) + "_"
	}
	name := filepath.Join(outDir, OfflineFrameName(prefix, r.imageIndex, r.opts.ImageFormat))
	if err := r.render(ctx, r.view, pose, name, width, height); err != nil {
		return "", err
	}
	r.imageIndex++
	return name, nil
}

func (r *Recorder) render(ctx context.Context, view View, pose core.Pose, name string, width, height int) error {
	img, err := view.Render(ctx, pose, width, height)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if err := imaging.Save(img, name); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
