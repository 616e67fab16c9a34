package gormstorage

import (
	"testing"
	"time"

	"github.com/OCAP2/campath/internal/database"
	"github.com/OCAP2/campath/internal/model"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend creates an initialized Backend over a private in-memory SQLite DB.
func newTestBackend(t *testing.T, interval time.Duration) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	b := New(Dependencies{DB: db, DBLog: zerolog.Nop(), WriteInterval: interval})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testPath(name string, n int) *core.Path {
	seq := make(core.Sequence, n)
	for i := range seq {
		seq[i] = core.NewPose(mgl64.Vec3{float64(i), 0, 0}, 50+float64(i), 1.5)
		seq[i].Rotation = mgl64.QuatRotate(float64(i)*0.1, mgl64.Vec3{0, 1, 0})
	}
	return &core.Path{Name: name, Source: core.SourceRecorded, Width: 1920, Height: 1080, Poses: seq}
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
}

func TestSaveGetPath(t *testing.T) {
	b := newTestBackend(t, 0)
	p := testPath("orbit", 12)

	require.NoError(t, b.SavePath(p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := b.GetPath("orbit")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "orbit", got.Name)
	assert.Equal(t, core.SourceRecorded, got.Source)
	assert.Equal(t, 1920, got.Width)
	require.Len(t, got.Poses, 12)
	for i := range p.Poses {
		assert.Truef(t, p.Poses[i].ApproxEqual(got.Poses[i], 1e-12), "pose %d", i)
	}
}

func TestSavePath_ReplacesSameName(t *testing.T) {
	b := newTestBackend(t, 0)

	require.NoError(t, b.SavePath(testPath("tour", 5)))
	require.NoError(t, b.SavePath(testPath("tour", 2)))

	got, err := b.GetPath("tour")
	require.NoError(t, err)
	assert.Len(t, got.Poses, 2)

	var poses int64
	require.NoError(t, b.DB().Model(&model.PoseRecord{}).Count(&poses).Error)
	assert.Equal(t, int64(2), poses)
}

func TestSavePath_NoName(t *testing.T) {
	b := newTestBackend(t, 0)
	assert.Error(t, b.SavePath(testPath("", 2)))
}

func TestGetPath_NotFound(t *testing.T) {
	b := newTestBackend(t, 0)
	_, err := b.GetPath("missing")
	assert.ErrorIs(t, err, core.ErrPathNotFound)
}

func TestListPaths(t *testing.T) {
	b := newTestBackend(t, 0)
	require.NoError(t, b.SavePath(testPath("b-path", 3)))
	require.NoError(t, b.SavePath(testPath("a-path", 4)))

	infos, err := b.ListPaths()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a-path", infos[0].Name)
	assert.Equal(t, 4, infos[0].PoseCount)
	assert.InDelta(t, 3.0, infos[0].Length, 1e-9)
	assert.Equal(t, "b-path", infos[1].Name)
}

func TestDeletePath(t *testing.T) {
	b := newTestBackend(t, 0)
	require.NoError(t, b.SavePath(testPath("gone", 3)))

	require.NoError(t, b.DeletePath("gone"))
	_, err := b.GetPath("gone")
	assert.ErrorIs(t, err, core.ErrPathNotFound)
	assert.ErrorIs(t, b.DeletePath("gone"), core.ErrPathNotFound)

	var poses int64
	require.NoError(t, b.DB().Model(&model.PoseRecord{}).Count(&poses).Error)
	assert.Zero(t, poses)
}

func TestBatchedWrites(t *testing.T) {
	b := newTestBackend(t, time.Hour)
	p := testPath("queued", 3)

	require.NoError(t, b.SavePath(p))
	assert.Equal(t, 1, b.Pending())
	assert.Zero(t, p.ID)

	// reads flush first
	got, err := b.GetPath("queued")
	require.NoError(t, err)
	assert.Len(t, got.Poses, 3)
	assert.Zero(t, b.Pending())
	assert.NotZero(t, p.ID)
}

func TestCloseFlushes(t *testing.T) {
	b := newTestBackend(t, time.Hour)
	require.NoError(t, b.SavePath(testPath("late", 2)))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, b.DB().Model(&model.PathRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFlush_FailedWritesStayQueued(t *testing.T) {
	b := newTestBackend(t, time.Hour)
	require.NoError(t, b.DB().Migrator().DropTable(&model.PoseRecord{}))

	first, second := testPath("first", 2), testPath("second", 3)
	require.NoError(t, b.SavePath(first))
	require.NoError(t, b.SavePath(second))

	err := b.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"first"`)
	assert.Equal(t, 2, b.Pending())
	assert.Error(t, b.Close())
	_, err = b.GetPath("first")
	assert.Error(t, err)
	assert.Equal(t, 2, b.Pending())
	assert.Zero(t, first.ID)

	require.NoError(t, b.DB().AutoMigrate(&model.PoseRecord{}))
	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())
	assert.NotZero(t, first.ID)

	got, err := b.GetPath("second")
	require.NoError(t, err)
	assert.Len(t, got.Poses, 3)
}

func TestSavePath_ImmediateFailure(t *testing.T) {
	b := newTestBackend(t, 0)
	require.NoError(t, b.DB().Migrator().DropTable(&model.PoseRecord{}))

	assert.Error(t, b.SavePath(testPath("lost", 2)))
	assert.Zero(t, b.Pending())
}

func TestWriteLoop(t *testing.T) {
	b := newTestBackend(t, 10*time.Millisecond)
	require.NoError(t, b.SavePath(testPath("ticked", 2)))

	assert.Eventually(t, func() bool { return b.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}
