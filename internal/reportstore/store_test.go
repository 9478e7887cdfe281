package reportstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"steamwishlist/internal/wishlist"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	db, err := Config{File: ":memory:"}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConfig(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.True(t, Config{File: "out.db"}.Enabled())
	require.True(t, Config{Url: "libsql://example.turso.io"}.Enabled())

	_, err := Config{}.OpenDB()
	require.Error(t, err)
}

func TestSave(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	db := openMemory(t)
	store, err := NewStore(ctx, db)
	require.NoError(t, err)

	_, _, lines := wishlist.Build([]wishlist.Record{
		{ItemID: "620", ItemTitle: "Portal 2", MemberID: "1", MemberName: "alice"},
		{ItemID: "620", ItemTitle: "Portal 2", MemberID: "2", MemberName: "bob"},
		{ItemID: "70", ItemTitle: "Half-Life", MemberID: "1", MemberName: "alice"},
	}, 1)

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	runId, err := store.Save(ctx, Run{
		Target:        "gaben",
		Mode:          "friends",
		MinThreshold:  1,
		MemberCount:   2,
		DistinctItems: 2,
		CreatedAt:     created,
	}, lines)
	require.NoError(t, err)
	require.Greater(t, runId, int64(0))

	var target string
	var createdAt int64
	err = db.QueryRowContext(ctx, "select target, created_at from report_run where id = ?", runId).Scan(&target, &createdAt)
	require.NoError(t, err)
	require.Equal(t, "gaben", target)
	require.Equal(t, created.Unix(), createdAt)

	rows, err := db.QueryContext(ctx, "select rank, item_id, count from report_line where run_id = ? order by rank", runId)
	require.NoError(t, err)
	defer rows.Close()

	type row struct {
		rank  int
		item  string
		count int
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.rank, &r.item, &r.count))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []row{{1, "620", 2}, {2, "70", 1}}, got)

	var members int
	err = db.QueryRowContext(ctx, "select count(*) from report_line_member where run_id = ? and item_id = '620'", runId).Scan(&members)
	require.NoError(t, err)
	require.Equal(t, 2, members)

	// a second run does not clash with the first
	second, err := store.Save(ctx, Run{Target: "gaben", Mode: "friends", CreatedAt: created}, lines)
	require.NoError(t, err)
	require.NotEqual(t, runId, second)
}

func TestSaveToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "report.db")

	db, err := Config{File: path}.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(ctx, db)
	require.NoError(t, err)
	_, err = store.Save(ctx, Run{Target: "1234", Mode: "group", CreatedAt: time.Now()}, nil)
	require.NoError(t, err)
}

func TestSaveRejectsAnonymousRun(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, openMemory(t))
	require.NoError(t, err)

	require.Panics(t, func() {
		store.Save(ctx, Run{Mode: "friends", CreatedAt: time.Now()}, nil)
	})
	require.Panics(t, func() {
		store.Save(ctx, Run{Target: "gaben", CreatedAt: time.Now()}, nil)
	})
}
