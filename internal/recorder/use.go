package recorder

import (
	"context"
	"math"

	"github.com/OCAP2/campath/pkg/core"
)

// Camera is the live camera the host renders with. Recording reads it,
// playback writes it.
type Camera interface {
	Pose() core.Pose
	SetPose(core.Pose)
}

// CameraSlot is a caller-owned Camera holding a single pose.
type CameraSlot struct {
	Current core.Pose
	Writes  int
}

func (c *CameraSlot) Pose() core.Pose { return c.Current }

func (c *CameraSlot) SetPose(p core.Pose) {
	c.Current = p
	c.Writes++
}

// Capture asks the host render loop to save the frame it is about to draw.
type Capture struct {
	Path      string // frame directory, empty when only video is requested
	Video     bool
	VideoPath string
	Index     int // increases by one per captured frame since Playback
}

// Frame reports what a single Use call did.
type Frame struct {
	State   State
	Applied bool      // Pose was written to the camera
	Pose    core.Pose // applied or recorded pose
	Cursor  int       // cursor after the call
	Done    bool      // playback had already reached the end
	Capture *Capture
}

// Use advances the state machine by one render tick. While recording it
// appends cam's pose. While playing it writes the next pose into cam and
// moves the cursor by the current speed. Idle recorders ignore cam.
func (r *Recorder) Use(cam Camera) Frame {
	switch r.state {
	case StateRecording:
		p := cam.Pose()
		r.seq = append(r.seq, p)
		r.metrics.recorded.Add(context.Background(), 1)
		return Frame{State: r.state, Pose: p, Cursor: len(r.seq)}
	case StatePlaying:
		return r.play(cam)
	default:
		return Frame{State: r.state, Cursor: r.cursor}
	}
}

func (r *Recorder) play(cam Camera) Frame {
	n := len(r.seq)
	if r.cursor >= n {
		return Frame{State: r.state, Cursor: r.cursor, Done: true}
	}

	var pose core.Pose
	switch {
	case r.noInterp:
		pose = r.seq[r.cursor]
		if r.speed > 0 {
			step := int(math.Round(r.speed))
			r.cursor = min(n, r.cursor+max(1, step))
		}
	case r.cursor == n-1:
		// nothing left to blend with
		pose = r.seq[r.cursor]
		if r.speed > 0 {
			r.cursor = n
			r.interp = 0
		}
	default:
		pose = core.Interpolate(r.seq[r.cursor], r.seq[r.cursor+1], r.interp)
		if r.speed > 0 {
			r.advance(n)
		}
	}

	cam.SetPose(pose)
	ctx := context.Background()
	r.metrics.played.Add(ctx, 1)

	f := Frame{State: r.state, Applied: true, Pose: pose, Cursor: r.cursor}
	if r.saving != 0 {
		f.Capture = &Capture{
			Path:      r.framesPath,
			Video:     r.saving&SaveVideo != 0,
			VideoPath: r.videoPath,
			Index:     r.frame,
		}
		r.frame++
		r.metrics.captured.Add(ctx, 1)
	}
	if r.cursor >= n {
		r.logger.Debug("Playback reached the end", "poses", n)
	}
	return f
}

// advance moves interp by speed and carries whole steps into the cursor.
func (r *Recorder) advance(n int) {
	r.interp += r.speed
	if r.interp < 1 {
		return
	}
	whole := math.Floor(r.interp)
	r.interp -= whole
	r.cursor += int(whole)
	if r.cursor >= n {
		r.cursor = n
		r.interp = 0
	}
}
