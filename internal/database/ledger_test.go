package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "builds.db")

	l, err := Open(ctx, "", dsn)
	require.NoError(t, err)

	base := time.Unix(1700000000, 0)

	for i, id := range []string{"first", "second", "third"} {
		err = l.Record(ctx, BuildRecord{
			ID:            id,
			SourcePath:    "main.at",
			SourceDigest:  "src",
			ImageDigest:   "img",
			ImageSize:     int64(100 + i),
			SelfContained: i == 1,
			Target:        "linux/amd64",
			Duration:      time.Duration(i+1) * time.Millisecond,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	require.NoError(t, l.Close())

	// reopening keeps the table
	l, err = Open(ctx, DefaultDriver, dsn)
	require.NoError(t, err)

	defer func() {
		_ = l.Close()
	}()

	recs, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "third", recs[0].ID)
	assert.Equal(t, "second", recs[1].ID)
	assert.True(t, recs[1].SelfContained)
	assert.False(t, recs[0].SelfContained)
	assert.Equal(t, int64(102), recs[0].ImageSize)
	assert.Equal(t, 3*time.Millisecond, recs[0].Duration)
	assert.True(t, base.Add(2*time.Minute).Equal(recs[0].CreatedAt))

	err = l.Record(ctx, BuildRecord{ID: "first"})
	assert.Error(t, err, "duplicate id")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.ErrorContains(t, err, "unsupported ledger driver")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", (&Ledger{driver: "sqlite"}).placeholders(3))
	assert.Equal(t, "$1, $2", (&Ledger{driver: "postgres"}).placeholders(2))
	assert.Equal(t, "@p1, @p2", (&Ledger{driver: "sqlserver"}).placeholders(2))
}
