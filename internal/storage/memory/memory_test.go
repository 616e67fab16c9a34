package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPath(name string) *core.Path {
	a := core.NewPose(mgl64.Vec3{0, 1, 0}, 55, 16.0/9.0)
	b := core.NewPose(mgl64.Vec3{4, 1, 3}, 65, 16.0/9.0)
	b.Rotation = mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	return &core.Path{Name: name, Source: core.SourceColmap, Width: 1280, Height: 720, Poses: core.Sequence{a, b}}
}

func newBackend(t *testing.T, dir string, compress bool) *Backend {
	t.Helper()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: compress}, nil)
	require.NoError(t, b.Init())
	return b
}

func TestSaveGetPath(t *testing.T) {
	b := newBackend(t, "", false)
	p := testPath("orbit")

	require.NoError(t, b.SavePath(p))
	assert.Equal(t, uint(1), p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := b.GetPath("orbit")
	require.NoError(t, err)
	assert.Equal(t, p.Poses, got.Poses)

	// stored copies are independent of the caller
	p.Poses[0].FovY = 10
	got.Poses[1].FovY = 10
	again, err := b.GetPath("orbit")
	require.NoError(t, err)
	assert.Equal(t, 55.0, again.Poses[0].FovY)
	assert.Equal(t, 65.0, again.Poses[1].FovY)
}

func TestSavePath_Errors(t *testing.T) {
	b := newBackend(t, "", false)
	assert.Error(t, b.SavePath(&core.Path{}))

	_, err := b.GetPath("nope")
	assert.ErrorIs(t, err, core.ErrPathNotFound)
	assert.ErrorIs(t, b.DeletePath("nope"), core.ErrPathNotFound)
}

func TestListPaths_Sorted(t *testing.T) {
	b := newBackend(t, "", false)
	require.NoError(t, b.SavePath(testPath("zeta")))
	require.NoError(t, b.SavePath(testPath("alpha")))
	require.NoError(t, b.SavePath(testPath("alpha")))

	infos, err := b.ListPaths()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, uint(3), infos[0].ID)
	assert.Equal(t, 2, infos[0].PoseCount)
	assert.InDelta(t, 5.0, infos[0].Length, 1e-12)
	assert.Equal(t, "zeta", infos[1].Name)
}

func TestClose_ExportsAndReloads(t *testing.T) {
	for _, compress := range []bool{true, false} {
		dir := filepath.Join(t.TempDir(), "paths")
		b := newBackend(t, dir, compress)
		require.NoError(t, b.SavePath(testPath("fly through")))
		require.NoError(t, b.Close())

		assert.FileExists(t, b.ExportFile("fly through"))
		if compress {
			assert.Equal(t, "fly+through.json.gz", filepath.Base(b.ExportFile("fly through")))
		}

		reloaded := newBackend(t, dir, compress)
		got, err := reloaded.GetPath("fly through")
		require.NoError(t, err)
		assert.Equal(t, core.SourceColmap, got.Source)
		assert.Equal(t, 1280, got.Width)
		require.Len(t, got.Poses, 2)
		assert.True(t, testPath("").Poses[1].ApproxEqual(got.Poses[1], 1e-12))
	}
}

func TestClose_SimilarNamesKeepSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a b", "a_b", "a:b", "a/b"}
	b := newBackend(t, dir, true)
	for i, name := range names {
		p := testPath(name)
		p.Width = 100 + i
		require.NoError(t, b.SavePath(p))
	}
	require.NoError(t, b.Close())

	reloaded := newBackend(t, dir, true)
	for i, name := range names {
		got, err := reloaded.GetPath(name)
		require.NoError(t, err, name)
		assert.Equal(t, 100+i, got.Width, name)
	}
}

func TestClose_RemovesDeletedExports(t *testing.T) {
	dir := t.TempDir()
	b := newBackend(t, dir, true)
	require.NoError(t, b.SavePath(testPath("keep")))
	require.NoError(t, b.SavePath(testPath("drop")))
	require.NoError(t, b.Close())
	require.FileExists(t, b.ExportFile("drop"))

	require.NoError(t, b.DeletePath("drop"))
	require.NoError(t, b.Close())
	assert.NoFileExists(t, b.ExportFile("drop"))
	assert.FileExists(t, b.ExportFile("keep"))
}

func TestInit_SkipsBrokenExports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	b := newBackend(t, dir, false)
	infos, err := b.ListPaths()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestInit_MissingDir(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: filepath.Join(t.TempDir(), "absent")}, nil)
	assert.NoError(t, b.Init())
}
