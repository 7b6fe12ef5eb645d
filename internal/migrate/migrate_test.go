package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/bucketlist/migrations"
)

func TestEmbeddedMigrations_Parse(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	ms, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	require.NoError(t, err)
	require.Len(t, ms, len(names))

	for i, m := range ms {
		require.Equal(t, int64(i+1), m.Version)
	}
}

func TestEmbeddedMigrations_HaveUpAndDown(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	for _, n := range names {
		b, err := fs.ReadFile(migrations.FS, n)
		require.NoError(t, err)
		s := string(b)
		require.True(t, strings.Contains(s, "-- +goose Up"), n)
		require.True(t, strings.Contains(s, "-- +goose Down"), n)
	}
}
