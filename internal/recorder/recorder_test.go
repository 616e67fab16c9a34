package recorder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecorder(t *testing.T, opts Options) *Recorder {
	t.Helper()
	r, err := New(opts, testLogger())
	require.NoError(t, err)
	return r
}

func pose(x float64, angle float64, fovY float64) core.Pose {
	p := core.NewPose(mgl64.Vec3{x, 2 * x, -x}, fovY, 16.0/9.0)
	p.Rotation = mgl64.QuatRotate(angle, mgl64.Vec3{0, 1, 0})
	return p
}

var (
	poseA = pose(0, 0, 0.8)
	poseB = pose(1, 0.5, 0.9)
	poseC = pose(2, 1.0, 1.0)
)

func TestNew_Defaults(t *testing.T) {
	r := newTestRecorder(t, Options{})

	opts := r.Options()
	assert.Equal(t, "camera-record.bytes", opts.DefaultFile)
	assert.Equal(t, 1920, opts.Width)
	assert.Equal(t, 1080, opts.Height)
	assert.Equal(t, "png", opts.ImageFormat)
	assert.Equal(t, 1.0, r.Speed())

	assert.Equal(t, StateIdle, r.State())
	assert.Zero(t, r.Len())
	assert.True(t, r.Finished())
	assert.False(t, r.IsRecording())
	assert.False(t, r.IsPlaying())
	assert.False(t, r.IsSaving())
}

func TestNew_InvalidImageFormat(t *testing.T) {
	_, err := New(Options{ImageFormat: "webm"}, testLogger())
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "recording", StateRecording.String())
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestRecordAndPlaybackAreExclusive(t *testing.T) {
	r := newTestRecorder(t, Options{})

	r.Playback()
	require.True(t, r.IsPlaying())
	r.Record()
	assert.True(t, r.IsRecording())
	assert.False(t, r.IsPlaying())

	r.Playback()
	assert.True(t, r.IsPlaying())
	assert.False(t, r.IsRecording())
}

func TestRecordClearsSequence(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{poseA, poseB})

	r.Record()
	assert.Zero(t, r.Len())
	assert.Zero(t, r.Cursor())
}

func TestStopKeepsSequence(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{poseA, poseB})
	r.Saving("frames")
	r.SavingVideo(true)
	r.Playback()

	r.Stop()
	assert.Equal(t, StateIdle, r.State())
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.IsSaving())
	assert.False(t, r.IsSavingVideo())
}

func TestReset(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{poseA, poseB})
	r.Playback()
	r.Use(&CameraSlot{})

	r.Reset()
	assert.Equal(t, StateIdle, r.State())
	assert.Zero(t, r.Len())
	assert.Zero(t, r.Cursor())
	assert.Equal(t, core.SourceRecorded, r.Source())
}

func TestSavingFlags(t *testing.T) {
	r := newTestRecorder(t, Options{VideoPath: "out.mp4"})

	r.Saving("frames")
	assert.True(t, r.IsSaving())
	assert.Equal(t, "frames", r.SavingPath())
	assert.Equal(t, StateIdle, r.State(), "saving does not change the state")

	r.SavingVideo(true)
	assert.True(t, r.IsSavingVideo())
	assert.Equal(t, SaveFrames|SaveVideo, r.SavingMode())
	assert.Equal(t, "out.mp4", r.VideoPath())

	r.SetVideoPath("other.mp4")
	assert.Equal(t, "other.mp4", r.VideoPath())

	r.StopSaving()
	assert.False(t, r.IsSaving())
	assert.Empty(t, r.SavingPath())
	assert.True(t, r.IsSavingVideo())

	r.SavingVideo(false)
	assert.Zero(t, r.SavingMode())
}

func TestCamerasIsACopy(t *testing.T) {
	r := newTestRecorder(t, Options{})
	in := core.Sequence{poseA, poseB}
	r.SetCameras(in)

	in[0] = poseC
	got := r.Cameras()
	assert.Equal(t, poseA, got[0])

	got[1] = poseC
	assert.Equal(t, poseB, r.Cameras()[1])
}

func TestPathSnapshot(t *testing.T) {
	r := newTestRecorder(t, Options{Width: 640, Height: 480})
	r.SetCameras(core.Sequence{poseA, poseB, poseC})

	p := r.Path("orbit")
	assert.Equal(t, "orbit", p.Name)
	assert.Equal(t, core.SourceRecorded, p.Source)
	assert.Equal(t, 640, p.Width)
	assert.Equal(t, 480, p.Height)
	assert.Len(t, p.Poses, 3)
}

func TestLogAttrs(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{poseA})
	r.Playback()

	attrs := r.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, "playing", attrs[0].Value.String())
	assert.Equal(t, int64(1), attrs[2].Value.Int64())
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	r := newTestRecorder(t, Options{Meter: mp.Meter("test")})
	r.Record()
	for _, p := range []core.Pose{poseA, poseB, poseC} {
		r.Use(&CameraSlot{Current: p})
	}
	r.Saving("frames")
	r.Playback()
	for i := 0; i < 5; i++ {
		r.Use(&CameraSlot{})
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(3), sums["recorder.poses.recorded"])
	assert.Equal(t, int64(3), sums["recorder.poses.played"])
	assert.Equal(t, int64(3), sums["recorder.frames.captured"])
}
