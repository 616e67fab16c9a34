package postgres

import (
	"testing"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/internal/database"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Unreachable(t *testing.T) {
	b := New(config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "campath",
	}, nil, zerolog.Nop())

	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

// The SQL is dialect neutral, so the queued writer is exercised over SQLite.
func TestInitClose_WithInjectedDB(t *testing.T) {
	db, err := database.GetSqliteDB("", zerolog.Nop())
	require.NoError(t, err)

	b := New(config.PostgresConfig{Host: "injected"}, nil, zerolog.Nop())
	b.db = db
	require.NoError(t, b.Init())

	p := &core.Path{Name: "tour", Poses: core.Sequence{core.NewPose(mgl64.Vec3{1, 2, 3}, 40, 1)}}
	require.NoError(t, b.SavePath(p))
	assert.Equal(t, 1, b.Pending())

	got, err := b.GetPath("tour")
	require.NoError(t, err)
	assert.Len(t, got.Poses, 1)

	require.NoError(t, b.Close())
	assert.Nil(t, b.db)
}
