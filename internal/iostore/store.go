package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// Table names.
const (
	snapshotMetaTable   = "pmo_snapshot_meta"
	projectsTable       = "pmo_projects"
	sprintsTable        = "pmo_sprints"
	teamsTable          = "pmo_teams"
	teamMembersTable    = "pmo_team_members"
	epicsTable          = "pmo_epics"
	featuresTable       = "pmo_features"
	userStoriesTable    = "pmo_user_stories"
	timesheetTable      = "pmo_timesheet_entries"
	rulesTable          = "pmo_rules"
	insightsTable       = "pmo_insights"
	generationRunsTable = "pmo_generation_runs"
)

// snapshotTables lists the tables replaced as a unit by ReplaceSnapshot.
var snapshotTables = []string{
	snapshotMetaTable, projectsTable, sprintsTable, teamsTable, teamMembersTable,
	epicsTable, featuresTable, userStoriesTable, timesheetTable,
}

// allTables lists every table owned by the store, in drop-safe order.
var allTables = append([]string{generationRunsTable, insightsTable, rulesTable}, snapshotTables...)

// SQLStore implements every store contract on one database handle.
type SQLStore struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var (
	_ contract.SnapshotStore = &SQLStore{} // Compile-time check
	_ contract.RuleStore     = &SQLStore{} // Compile-time check
	_ contract.InsightStore  = &SQLStore{} // Compile-time check
	_ contract.RunStore      = &SQLStore{} // Compile-time check
)

// NewStore opens the database for backend, verifies the connection and
// migrates the schema to the latest version. NoneBackend yields an ephemeral
// in-memory SQLite store that is discarded when the process exits.
func NewStore(backend schema.DatabaseBackend, connStr string) (*SQLStore, error) {
	db, driverName, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is readable and its directory is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}

	if _, _, err := migrateDB(db, backend, -1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", backend, err)
	}

	return &SQLStore{db: db, backend: backend, driverName: driverName}, nil
}

// openDB opens a handle without touching the schema.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, string, error) {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		dbPath := connStr
		if backend == schema.NoneBackend {
			dbPath = ":memory:"
		} else if dbPath == "" {
			dbPath = contract.GetDBFilePath()
		}
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// One connection avoids "database is locked" errors and keeps :memory: on a single database
		db.SetMaxOpenConns(1)
		return db, "sqlite", nil

	case schema.MySQLBackend:
		dsn, err := normalizeMySQLDSN(connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse MySQL connection string: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}
		return db, "mysql", nil

	case schema.PostgreSQLBackend:
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=... user=... password=...", err)
		}
		return db, "pgx", nil

	default:
		return nil, "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// normalizeMySQLDSN enables the options the store depends on: multi-statement
// migrations and matched (not changed) row counts for upserts.
func normalizeMySQLDSN(connStr string) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", err
	}
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// Backend returns the configured backend.
func (s *SQLStore) Backend() schema.DatabaseBackend { return s.backend }

// DB exposes the handle for migrations and tests.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertReturningID runs an INSERT and returns the generated id.
func (s *SQLStore) insertReturningID(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	if s.backend == schema.PostgreSQLBackend {
		var id int64
		err := q.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// toNanos and fromNanos store timestamps as unix nanoseconds on every backend.
func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullableNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

// dateArg stores an unset date as NULL.
func dateArg(d schema.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) (schema.Date, error) {
	if !ns.Valid {
		return schema.Date{}, nil
	}
	return schema.ParseDate(ns.String)
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
