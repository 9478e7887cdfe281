// Package reportstore exports a ranked report to sqlite or libsql.
package reportstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"steamwishlist/internal/components/assert"
	"steamwishlist/internal/wishlist"
	"time"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Config struct {
	// File is a local sqlite database, it is used when Url is empty.
	File string `json:"file"`
	// Url is a remote libsql database (libsql://, https://, ws://).
	Url       string `json:"url" validate:"omitempty,url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) Enabled() bool {
	return c.File != "" || c.Url != ""
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open report db: %w", err)
}

func (c Config) OpenDB() (*sql.DB, error) {
	if c.Url == "" {
		if c.File == "" {
			return nil, wrapOpenDB(fmt.Errorf("neither a file nor a url was specified"))
		}
		if c.File != ":memory:" {
			err := os.MkdirAll(filepath.Dir(c.File), 0777)
			if err != nil {
				return nil, wrapOpenDB(err)
			}
		}
		db, err := sql.Open("sqlite", c.File)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		// a single writer, see https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		return db, nil
	}

	values := url.Values{}
	if c.AuthToken != "" {
		values.Add("authToken", c.AuthToken)
	}
	db, err := sql.Open("libsql", c.Url+"?"+values.Encode())
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

type Store struct {
	db *sql.DB
}

// NewStore creates the report tables if they don't exist yet.
func NewStore(ctx context.Context, db *sql.DB) (Store, error) {
	assert.NotNil(db, "db")
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return Store{}, fmt.Errorf("create report schema: %w", err)
	}
	return Store{db: db}, nil
}

type Run struct {
	Target        string
	Mode          string
	MinThreshold  int
	MemberCount   int
	FailedCount   int
	DistinctItems int
	CreatedAt     time.Time
}

// Save writes a run and its report lines in a single transaction and returns
// the id of the run.
func (s Store) Save(ctx context.Context, run Run, lines []wishlist.ReportLine) (int64, error) {
	assert.NotEmptyStr(run.Target, "run.Target")
	assert.NotEmptyStr(run.Mode, "run.Mode")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`insert into report_run(
			target, mode, min_threshold, member_count, failed_count, distinct_items, created_at
		) values (?, ?, ?, ?, ?, ?, ?)`,
		run.Target, run.Mode, run.MinThreshold,
		run.MemberCount, run.FailedCount, run.DistinctItems,
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runId, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, line := range lines {
		_, err = tx.ExecContext(
			ctx,
			"insert into report_line(run_id, rank, item_id, title, count) values (?, ?, ?, ?, ?)",
			runId, line.Rank, line.ItemID, line.Title, line.Count,
		)
		if err != nil {
			return 0, fmt.Errorf("insert line %s: %w", line.ItemID, err)
		}
		for idx, member := range line.Members {
			_, err = tx.ExecContext(
				ctx,
				"insert into report_line_member(run_id, item_id, idx, member_name) values (?, ?, ?, ?)",
				runId, line.ItemID, idx, member,
			)
			if err != nil {
				return 0, fmt.Errorf("insert member of %s: %w", line.ItemID, err)
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	return runId, nil
}
