// Package recorder records live camera poses and plays them back one render
// tick at a time.
package recorder

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/OCAP2/campath/internal/recorder"

// State is the recorder's mode. Recording and playing are exclusive.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SavingMode flags which outputs a playing recorder asks the host to capture.
type SavingMode uint8

const (
	SaveFrames SavingMode = 1 << iota
	SaveVideo
)

// Options configures a Recorder.
type Options struct {
	DefaultFile string // used by Load and Save when called with an empty path
	Width       int
	Height      int
	Speed       float64
	ImageFormat string // extension for offline frames, e.g. "png"
	VideoPath   string

	// Meter overrides the global OpenTelemetry meter.
	Meter metric.Meter
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		DefaultFile: "camera-record.bytes",
		Width:       1920,
		Height:      1080,
		Speed:       1,
		ImageFormat: "png",
	}
}

type recorderMetrics struct {
	recorded metric.Int64Counter
	played   metric.Int64Counter
	captured metric.Int64Counter
	offline  metric.Int64Counter
}

func newRecorderMetrics(m metric.Meter) (recorderMetrics, error) {
	var (
		rm  recorderMetrics
		err error
	)
	if rm.recorded, err = m.Int64Counter("recorder.poses.recorded",
		metric.WithDescription("Poses appended while recording"),
		metric.WithUnit("{pose}")); err != nil {
		return rm, err
	}
	if rm.played, err = m.Int64Counter("recorder.poses.played",
		metric.WithDescription("Poses applied to a camera during playback"),
		metric.WithUnit("{pose}")); err != nil {
		return rm, err
	}
	if rm.captured, err = m.Int64Counter("recorder.frames.captured",
		metric.WithDescription("Playback frames flagged for capture"),
		metric.WithUnit("{frame}")); err != nil {
		return rm, err
	}
	if rm.offline, err = m.Int64Counter("recorder.offline.frames",
		metric.WithDescription("Frames written by offline export"),
		metric.WithUnit("{frame}")); err != nil {
		return rm, err
	}
	return rm, nil
}

// Recorder owns a pose sequence and the record/playback state machine.
// It is not safe for concurrent use; drive it from the render loop.
type Recorder struct {
	opts    Options
	logger  *slog.Logger
	metrics recorderMetrics

	seq    core.Sequence
	source string

	state    State
	saving   SavingMode
	cursor   int
	interp   float64
	speed    float64
	noInterp bool

	framesPath string
	videoPath  string
	frame      int

	view        View
	datasetPath string
	imageIndex  int
}

// New creates an idle recorder with an empty sequence.
func New(opts Options, logger *slog.Logger) (*Recorder, error) {
	def := DefaultOptions()
	if opts.DefaultFile == "" {
		opts.DefaultFile = def.DefaultFile
	}
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Speed == 0 {
		opts.Speed = def.Speed
	}
	if opts.ImageFormat == "" {
		opts.ImageFormat = def.ImageFormat
	}
	if _, err := imaging.FormatFromExtension(opts.ImageFormat); err != nil {
		return nil, fmt.Errorf("invalid image format %q: %w", opts.ImageFormat, err)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(meterName)
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newRecorderMetrics(opts.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder metrics: %w", err)
	}

	return &Recorder{
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		source:    core.SourceRecorded,
		speed:     opts.Speed,
		videoPath: opts.VideoPath,
	}, nil
}

// Record clears the sequence and starts appending poses on every Use.
func (r *Recorder) Record() {
	r.seq = nil
	r.source = core.SourceRecorded
	r.cursor = 0
	r.interp = 0
	r.state = StateRecording
	r.logger.Info("Recording started")
}

// Playback rewinds to the first pose and starts playing.
func (r *Recorder) Playback() {
	r.cursor = 0
	r.interp = 0
	r.frame = 0
	r.state = StatePlaying
	r.logger.Info("Playback started", "poses", len(r.seq), "speed", r.speed, "noInterpolation", r.noInterp)
}

// Stop returns to idle and clears the saving flags. The sequence is kept.
func (r *Recorder) Stop() {
	if r.state == StateRecording {
		r.logger.Info("Recording stopped", "poses", len(r.seq))
	}
	r.state = StateIdle
	r.saving = 0
}

// Reset stops and clears the sequence.
func (r *Recorder) Reset() {
	r.Stop()
	r.seq = nil
	r.source = core.SourceRecorded
	r.cursor = 0
	r.interp = 0
}

// Saving asks for every played frame to be captured into path.
func (r *Recorder) Saving(path string) {
	r.framesPath = path
	r.saving |= SaveFrames
}

// StopSaving clears the frame capture request.
func (r *Recorder) StopSaving() {
	r.framesPath = ""
	r.saving &^= SaveFrames
}

// SavingVideo toggles the video capture request.
func (r *Recorder) SavingVideo(enabled bool) {
	if enabled {
		r.saving |= SaveVideo
	} else {
		r.saving &^= SaveVideo
	}
}

// SetVideoPath sets where captured video should go.
func (r *Recorder) SetVideoPath(path string) { r.videoPath = path }

func (r *Recorder) VideoPath() string { return r.videoPath }
func (r *Recorder) SavingPath() string { return r.framesPath }

func (r *Recorder) Speed() float64 { return r.speed }

// SetSpeed sets the playback speed in poses per Use. Values <= 0 stall playback.
func (r *Recorder) SetSpeed(v float64) { r.speed = v }

// PlayNoInterpolation makes playback snap to stored poses.
func (r *Recorder) PlayNoInterpolation(v bool) { r.noInterp = v }

func (r *Recorder) State() State { return r.state }
func (r *Recorder) SavingMode() SavingMode { return r.saving }
func (r *Recorder) IsRecording() bool { return r.state == StateRecording }
func (r *Recorder) IsPlaying() bool { return r.state == StatePlaying }
func (r *Recorder) IsSaving() bool { return r.saving&SaveFrames != 0 }
func (r *Recorder) IsSavingVideo() bool { return r.saving&SaveVideo != 0 }
func (r *Recorder) Cursor() int { return r.cursor }
func (r *Recorder) Len() int { return len(r.seq) }
func (r *Recorder) Source() string { return r.source }
func (r *Recorder) Options() Options { return r.opts }
func (r *Recorder) Finished() bool { return r.cursor >= len(r.seq) }
func (r *Recorder) Interpolation() float64 { return r.interp }
func (r *Recorder) NoInterpolation() bool { return r.noInterp }

// Cameras returns a copy of the pose sequence.
func (r *Recorder) Cameras() core.Sequence { return r.seq.Clone() }

// SetCameras replaces the pose sequence with a copy of seq and rewinds.
func (r *Recorder) SetCameras(seq core.Sequence) {
	r.install(seq.Clone(), core.SourceRecorded)
}

// Path snapshots the sequence as a named path at the configured resolution.
func (r *Recorder) Path(name string) *core.Path {
	return &core.Path{
		Name:   name,
		Source: r.source,
		Width:  r.opts.Width,
		Height: r.opts.Height,
		Poses:  r.seq.Clone(),
	}
}

// LogAttrs describes the recorder for structured log records.
func (r *Recorder) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("recorder.state", r.state.String()),
		slog.Int("recorder.cursor", r.cursor),
		slog.Int("recorder.poses", len(r.seq)),
	}
}

func (r *Recorder) install(seq core.Sequence, source string) {
	r.seq = seq
	r.source = source
	r.cursor = 0
	r.interp = 0
}

func (r *Recorder) resolve(path string) string {
	if path == "" {
		return r.opts.DefaultFile
	}
	return filepath.Clean(path)
}
