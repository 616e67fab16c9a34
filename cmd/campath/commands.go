package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/OCAP2/campath/internal/codec"
	"github.com/OCAP2/campath/internal/geo"
	"github.com/OCAP2/campath/internal/recorder"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/urfave/cli/v2"
)

func sizeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: flagWidth, Usage: "image width in pixels (default from config)"},
		&cli.IntFlag{Name: flagHeight, Usage: "image height in pixels (default from config)"},
	}
}

// size returns the width and height flags, falling back to the recorder config.
func (e *env) size(c *cli.Context) (int, int, error) {
	w, h := e.recordOpts.Width, e.recordOpts.Height
	if c.IsSet(flagWidth) {
		w = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		h = c.Int(flagHeight)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %dx%d", w, h)
	}
	return w, h, nil
}

// load reads the --in path into the recorder.
func (e *env) load(c *cli.Context) error {
	w, h, err := e.size(c)
	if err != nil {
		return err
	}
	in := c.Path(flagIn)
	if err := e.rec.LoadPath(in, w, h); err != nil {
		return err
	}
	e.logger.Debug("Loaded camera path", "path", in)
	return nil
}

func inFlag() cli.Flag {
	return &cli.PathFlag{Name: flagIn, Aliases: []string{"i"}, Required: true, Usage: "camera path to read"}
}

func convertCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert a camera path to another format",
		UsageText: "campath convert --in <path> --out <path> [--format colmap|fribr|bundle|lookat|bytes]",
		Flags: append([]cli.Flag{
			inFlag(),
			&cli.PathFlag{Name: flagOut, Aliases: []string{"o"}, Required: true, Usage: "file or directory to write"},
			&cli.StringFlag{Name: flagFormat, Usage: "output format, guessed from --out when unset"},
			&cli.IntFlag{Name: flagStep, Value: 1, Usage: "keep every n-th pose (bundle only)"},
		}, sizeFlags()...),
		Action: e.convertAction,
	}
}

func (e *env) convertAction(c *cli.Context) error {
	if err := e.load(c); err != nil {
		return err
	}
	w, h, err := e.size(c)
	if err != nil {
		return err
	}

	out := c.Path(flagOut)
	format, err := outputFormat(out, c.String(flagFormat))
	if err != nil {
		return err
	}

	if err := e.saveAs(out, format, w, h, c.Int(flagStep)); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "wrote %d poses to %s (%s)\n", e.rec.Len(), out, format)
	return nil
}

// saveAs writes the recorder's sequence in format.
func (e *env) saveAs(out string, format codec.Format, width, height, step int) error {
	switch format {
	case codec.FormatNative:
		return e.rec.Save(out)
	case codec.FormatBundle:
		return e.rec.SaveAsBundle(out, height, step)
	case codec.FormatColmap:
		if strings.EqualFold(filepath.Ext(out), ".txt") {
			out = filepath.Dir(out)
		}
		return e.rec.SaveAsColmap(out, width, height)
	case codec.FormatLookAt:
		return e.rec.SaveAsLookAt(out)
	case codec.FormatFRIBR:
		return e.rec.SaveAsFRIBRBundle(out, width, height)
	default:
		return fmt.Errorf("%w: %q", codec.ErrUnknownFormat, format)
	}
}

// outputFormat resolves an explicit format name or guesses one from the extension.
// A directory-like path without extension is read as COLMAP.
func outputFormat(out, name string) (codec.Format, error) {
	if name != "" {
		return codec.ParseFormat(name)
	}
	if filepath.Ext(out) == "" {
		return codec.FormatColmap, nil
	}
	return codec.FormatFromPath(out)
}

func infoCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:   "info",
		Usage:  "summarize a camera path",
		Flags:  append([]cli.Flag{inFlag()}, sizeFlags()...),
		Action: e.infoAction,
	}
}

func (e *env) infoAction(c *cli.Context) error {
	if err := e.load(c); err != nil {
		return err
	}
	p := e.rec.Path(strings.TrimSuffix(filepath.Base(c.Path(flagIn)), filepath.Ext(c.Path(flagIn))))
	lo, hi := p.Poses.FovRange()

	w := c.App.Writer
	fmt.Fprintf(w, "name:   %s\n", p.Name)
	fmt.Fprintf(w, "source: %s\n", p.Source)
	fmt.Fprintf(w, "poses:  %d\n", len(p.Poses))
	fmt.Fprintf(w, "length: %.3f\n", p.Poses.Length())
	fmt.Fprintf(w, "fovy:   %.2f..%.2f deg\n", mgl64.RadToDeg(lo), mgl64.RadToDeg(hi))
	if wkt := geo.TrajectoryWKT(p.Poses); wkt != "" {
		fmt.Fprintf(w, "trajectory: %s\n", wkt)
	}
	return nil
}

func previewCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "play a camera path and print every applied pose",
		Flags: append([]cli.Flag{
			inFlag(),
			&cli.Float64Flag{Name: flagSpeed, Usage: "playback speed in poses per frame (default from config)"},
			&cli.BoolFlag{Name: flagNoInterp, Usage: "step through the stored poses without interpolation"},
			&cli.IntFlag{Name: flagMax, Value: 100000, Usage: "stop after this many frames"},
		}, sizeFlags()...),
		Action: e.previewAction,
	}
}

func (e *env) previewAction(c *cli.Context) error {
	if err := e.load(c); err != nil {
		return err
	}
	if c.IsSet(flagSpeed) {
		e.rec.SetSpeed(c.Float64(flagSpeed))
	}
	e.rec.PlayNoInterpolation(c.Bool(flagNoInterp))
	if e.rec.Speed() <= 0 {
		return fmt.Errorf("speed must be positive, got %g", e.rec.Speed())
	}

	slot := &recorder.CameraSlot{}
	e.rec.Playback()
	defer e.rec.Stop()

	w := c.App.Writer
	for frame := 0; frame < c.Int(flagMax); frame++ {
		f := e.rec.Use(slot)
		if f.Done {
			break
		}
		p := f.Pose
		fmt.Fprintf(w, "%d\tcursor=%d\tpos=%.4f,%.4f,%.4f\tfovy=%.2f\n",
			frame, f.Cursor, p.Position[0], p.Position[1], p.Position[2], mgl64.RadToDeg(p.FovY))
	}
	e.logger.Info("Preview finished", "frames", slot.Writes)
	return nil
}

func renderCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "render a horizon preview image for every pose",
		Flags: append([]cli.Flag{
			inFlag(),
			&cli.PathFlag{Name: flagOut, Aliases: []string{"o"}, Required: true, Usage: "directory for the frames"},
			&cli.StringFlag{Name: flagPrefix, Value: "frame_", Usage: "frame file name prefix"},
		}, sizeFlags()...),
		Action: e.renderAction,
	}
}

func (e *env) renderAction(c *cli.Context) error {
	if err := e.load(c); err != nil {
		return err
	}
	w, h, err := e.size(c)
	if err != nil {
		return err
	}
	opts := e.rec.Options()
	opts.Width, opts.Height = w, h
	rec, err := recorder.New(opts, e.logger)
	if err != nil {
		return err
	}
	rec.SetCameras(e.rec.Cameras())

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := c.Path(flagOut)
	if err := rec.RecordOfflinePath(ctx, out, horizonView{}, c.String(flagPrefix)); err != nil {
		if errors.Is(err, ctx.Err()) {
			e.logger.Warn("Render interrupted", "error", err)
		}
		return err
	}
	fmt.Fprintf(c.App.Writer, "rendered %d frames to %s\n", rec.Len(), out)
	return nil
}
