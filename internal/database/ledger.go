// Package database keeps a ledger of produced images in a SQL database.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite" // pure Go, the default

	"tlog.app/go/errors"
)

// DefaultDriver needs no cgo and no server.
const DefaultDriver = "sqlite"

// Drivers lists the accepted driver names.
var Drivers = []string{"sqlite", "sqlite3", "postgres", "mysql", "sqlserver"}

type (
	BuildRecord struct {
		ID            string
		SourcePath    string
		SourceDigest  string
		ImageDigest   string
		ImageSize     int64
		SelfContained bool
		Target        string
		Duration      time.Duration
		CreatedAt     time.Time
	}

	Ledger struct {
		db     *sql.DB
		driver string
	}
)

const columns = "id, source_path, source_digest, image_digest, image_size, self_contained, target, duration_ns, created_at"

const createTable = `CREATE TABLE atlang_builds (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	source_path VARCHAR(1024) NOT NULL,
	source_digest VARCHAR(64) NOT NULL,
	image_digest VARCHAR(64) NOT NULL,
	image_size BIGINT NOT NULL,
	self_contained INTEGER NOT NULL,
	target VARCHAR(64) NOT NULL,
	duration_ns BIGINT NOT NULL,
	created_at BIGINT NOT NULL
)`

// Open connects to the ledger database and creates the table if needed.
func Open(ctx context.Context, driver, dsn string) (*Ledger, error) {
	if driver == "" {
		driver = DefaultDriver
	}

	if !known(driver) {
		return nil, errors.New("unsupported ledger driver %q (want one of %v)", driver, strings.Join(Drivers, ", "))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open %v", driver)
	}

	l := &Ledger{db: db, driver: driver}

	if err = l.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return l, nil
}

func (l *Ledger) init(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping")
	}

	q := strings.Replace(createTable, "CREATE TABLE", "CREATE TABLE IF NOT EXISTS", 1)
	if l.driver == "sqlserver" {
		q = "IF OBJECT_ID('atlang_builds', 'U') IS NULL " + createTable
	}

	if _, err := l.db.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "create table")
	}

	return nil
}

// Record stores r. A zero CreatedAt is set to now.
func (l *Ledger) Record(ctx context.Context, r BuildRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	sc := 0
	if r.SelfContained {
		sc = 1
	}

	q := fmt.Sprintf("INSERT INTO atlang_builds (%s) VALUES (%s)", columns, l.placeholders(9))

	_, err := l.db.ExecContext(ctx, q,
		r.ID, r.SourcePath, r.SourceDigest, r.ImageDigest, r.ImageSize,
		sc, r.Target, int64(r.Duration), r.CreatedAt.UnixNano())
	if err != nil {
		return errors.Wrap(err, "insert build %v", r.ID)
	}

	return nil
}

// Recent returns up to limit records, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	q := fmt.Sprintf("SELECT %s FROM atlang_builds ORDER BY created_at DESC LIMIT %d", columns, limit)
	if l.driver == "sqlserver" {
		q = fmt.Sprintf("SELECT TOP (%d) %s FROM atlang_builds ORDER BY created_at DESC", limit, columns)
	}

	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}

	defer func() {
		_ = rows.Close()
	}()

	var res []BuildRecord

	for rows.Next() {
		var r BuildRecord
		var sc int
		var dur, created int64

		err = rows.Scan(&r.ID, &r.SourcePath, &r.SourceDigest, &r.ImageDigest, &r.ImageSize, &sc, &r.Target, &dur, &created)
		if err != nil {
			return nil, errors.Wrap(err, "scan")
		}

		r.SelfContained = sc != 0
		r.Duration = time.Duration(dur)
		r.CreatedAt = time.Unix(0, created)

		res = append(res, r)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}

	return res, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) placeholders(n int) string {
	ps := make([]string, n)

	for i := range ps {
		switch l.driver {
		case "postgres":
			ps[i] = fmt.Sprintf("$%d", i+1)
		case "sqlserver":
			ps[i] = fmt.Sprintf("@p%d", i+1)
		default:
			ps[i] = "?"
		}
	}

	return strings.Join(ps, ", ")
}

func known(driver string) bool {
	for _, d := range Drivers {
		if d == driver {
			return true
		}
	}

	return false
}
