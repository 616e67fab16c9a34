package main

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/disintegration/imaging"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	skyColor    = color.NRGBA{R: 135, G: 190, B: 235, A: 255}
	groundColor = color.NRGBA{R: 110, G: 95, B: 70, A: 255}
)

// horizonView renders the world horizon (the y = 0 plane direction) as seen
// from a pose. It needs no scene and is enough to check orientation and
// field of view of a path.
type horizonView struct{}

func (horizonView) Render(ctx context.Context, pose core.Pose, width, height int) (image.Image, error) {
	img := imaging.New(width, height, skyColor)

	tanY := math.Tan(pose.FovY / 2)
	tanX := tanY * pose.Aspect
	if pose.Aspect <= 0 {
		tanX = tanY * float64(width) / float64(height)
	}
	rot := pose.CameraToWorld()

	for y := 0; y < height; y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ny := 1 - 2*(float64(y)+0.5)/float64(height)
		for x := 0; x < width; x++ {
			nx := 2*(float64(x)+0.5)/float64(width) - 1
			ray := rot.Mul3x1(mgl64.Vec3{nx * tanX, ny * tanY, -1})
			if ray[1] < 0 {
				img.SetNRGBA(x, y, groundColor)
			}
		}
	}
	return img, nil
}
