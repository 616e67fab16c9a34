package recorder

import (
	"fmt"
	"math"
	"testing"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUse_RecordThenPlay(t *testing.T) {
	r := newTestRecorder(t, Options{})

	r.Record()
	for _, p := range []core.Pose{poseA, poseB, poseC} {
		cam := &CameraSlot{Current: p}
		f := r.Use(cam)
		assert.Equal(t, StateRecording, f.State)
		assert.Zero(t, cam.Writes, "recording must not write the camera")
	}
	assert.Equal(t, core.Sequence{poseA, poseB, poseC}, r.Cameras())

	r.Stop()
	r.Playback()
	r.PlayNoInterpolation(true)
	r.SetSpeed(1)

	dummy := &CameraSlot{}
	for i, want := range []core.Pose{poseA, poseB, poseC} {
		f := r.Use(dummy)
		require.True(t, f.Applied)
		assert.Equal(t, want, dummy.Current, "call %d", i+1)
		assert.Equal(t, i+1, f.Cursor)
	}

	f := r.Use(dummy)
	assert.True(t, f.Done)
	assert.False(t, f.Applied)
	assert.Equal(t, 3, r.Cursor())
	assert.Equal(t, 3, dummy.Writes)
	assert.Equal(t, poseC, dummy.Current)
	assert.True(t, r.IsPlaying(), "finishing does not stop playback")
}

func TestUse_FractionalSpeed(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{poseA, poseB})
	r.SetSpeed(0.5)
	r.Playback()

	cam := &CameraSlot{}

	r.Use(cam)
	assert.True(t, cam.Current.ApproxEqual(poseA, 1e-12))

	r.Use(cam)
	half := core.Interpolate(poseA, poseB, 0.5)
	assert.True(t, cam.Current.ApproxEqual(half, 1e-12))
	assert.InDelta(t, 0.5, cam.Current.Position.X(), 1e-12)

	r.Use(cam)
	assert.True(t, cam.Current.ApproxEqual(poseB, 1e-12))

	f := r.Use(cam)
	assert.True(t, f.Done)
	assert.Equal(t, 2, r.Cursor())
	assert.Equal(t, 3, cam.Writes)
}

func TestUse_CursorMonotonic(t *testing.T) {
	seq := make(core.Sequence, 7)
	for i := range seq {
		seq[i] = pose(float64(i), 0.1*float64(i), 0.7)
	}

	tests := []struct {
		speed    float64
		noInterp bool
	}{
		{0.3, false},
		{0.5, false},
		{1, false},
		{1.5, false},
		{2, false},
		{3.7, false},
		{1, true},
		{2, true},
		{3, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("speed=%v/noInterp=%v", tt.speed, tt.noInterp), func(t *testing.T) {
			r := newTestRecorder(t, Options{})
			r.SetCameras(seq)
			r.SetSpeed(tt.speed)
			r.PlayNoInterpolation(tt.noInterp)
			r.Playback()

			limit := int(math.Ceil(float64(len(seq)) / tt.speed))
			cam := &CameraSlot{}
			prev := 0
			calls := 0
			for !r.Finished() {
				require.LessOrEqual(t, calls, limit, "playback did not finish in time")
				r.Use(cam)
				calls++
				assert.GreaterOrEqual(t, r.Cursor(), prev)
				prev = r.Cursor()
			}
			assert.LessOrEqual(t, calls, limit)
			assert.Equal(t, len(seq), r.Cursor())
		})
	}
}

func TestUse_NoInterpolationKeepsFov(t *testing.T) {
	a := pose(0, 0, 0.4)
	b := pose(1, 0, 1.2)
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{a, b})
	r.SetSpeed(0.5)
	r.PlayNoInterpolation(true)
	r.Playback()

	cam := &CameraSlot{}
	r.Use(cam)
	assert.Equal(t, 0.4, cam.Current.FovY)
	r.Use(cam)
	assert.Equal(t, 1.2, cam.Current.FovY)
	assert.True(t, r.Finished())
}

func TestUse_IdleIsNoOp(t *testing.T) {
	r := newTestRecorder(t, Options{})
	seq := core.Sequence{poseA, poseB}
	r.SetCameras(seq)

	cam := &CameraSlot{Current: poseC}
	for i := 0; i < 5; i++ {
		f := r.Use(cam)
		assert.Equal(t, StateIdle, f.State)
		assert.False(t, f.Applied)
	}
	assert.Zero(t, cam.Writes)
	assert.Equal(t, poseC, cam.Current)
	assert.Equal(t, seq, r.Cameras())
}

func TestUse_EmptySequenceFinishesImmediately(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.Playback()

	cam := &CameraSlot{Current: poseA}
	f := r.Use(cam)
	assert.True(t, f.Done)
	assert.Zero(t, cam.Writes)
	assert.True(t, r.IsPlaying())
}

func TestUse_SinglePoseHeld(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{poseB})
	r.Playback()

	cam := &CameraSlot{}
	f := r.Use(cam)
	assert.True(t, f.Applied)
	assert.Equal(t, poseB, cam.Current)

	for i := 0; i < 3; i++ {
		assert.True(t, r.Use(cam).Done)
	}
	assert.Equal(t, poseB, cam.Current)
	assert.Equal(t, 1, cam.Writes)
}

func TestUse_NonPositiveSpeedStalls(t *testing.T) {
	for _, speed := range []float64{0, -1} {
		for _, noInterp := range []bool{false, true} {
			r := newTestRecorder(t, Options{})
			r.SetCameras(core.Sequence{poseA, poseB})
			r.SetSpeed(speed)
			r.PlayNoInterpolation(noInterp)
			r.Playback()

			cam := &CameraSlot{}
			for i := 0; i < 4; i++ {
				r.Use(cam)
			}
			assert.Zero(t, r.Cursor())
			assert.Equal(t, poseA, cam.Current)
			assert.False(t, r.Finished())
		}
	}
}

func TestUse_CaptureSignal(t *testing.T) {
	r := newTestRecorder(t, Options{VideoPath: "movie.mp4"})
	r.SetCameras(core.Sequence{poseA, poseB, poseC})
	r.PlayNoInterpolation(true)
	r.Saving("frames")
	r.Playback()

	cam := &CameraSlot{}
	f := r.Use(cam)
	require.NotNil(t, f.Capture)
	assert.Equal(t, "frames", f.Capture.Path)
	assert.False(t, f.Capture.Video)
	assert.Equal(t, 0, f.Capture.Index)

	r.SavingVideo(true)
	r.StopSaving()
	f = r.Use(cam)
	require.NotNil(t, f.Capture)
	assert.Empty(t, f.Capture.Path)
	assert.True(t, f.Capture.Video)
	assert.Equal(t, "movie.mp4", f.Capture.VideoPath)
	assert.Equal(t, 1, f.Capture.Index)

	r.SavingVideo(false)
	f = r.Use(cam)
	assert.Nil(t, f.Capture)

	assert.Nil(t, r.Use(cam).Capture, "finished playback captures nothing")
}

func TestUse_PlaybackRestartsCaptureIndex(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{poseA, poseB})
	r.Saving("frames")
	r.PlayNoInterpolation(true)

	r.Playback()
	r.Use(&CameraSlot{})
	r.Use(&CameraSlot{})

	r.Playback()
	f := r.Use(&CameraSlot{})
	require.NotNil(t, f.Capture)
	assert.Equal(t, 0, f.Capture.Index)
}

func TestUse_InterpolatedRotationStaysUnit(t *testing.T) {
	a := pose(0, 0, 0.8)
	b := pose(0, math.Pi/2, 0.8)
	r := newTestRecorder(t, Options{})
	r.SetCameras(core.Sequence{a, b})
	r.SetSpeed(0.25)
	r.Playback()

	cam := &CameraSlot{}
	for !r.Finished() {
		r.Use(cam)
		assert.InDelta(t, 1, cam.Current.Rotation.Len(), 1e-9)
	}
	assert.True(t, cam.Current.Forward().ApproxEqualThreshold(b.Forward(), 1e-12))
	assert.True(t, cam.Current.Up().ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-12))
}
