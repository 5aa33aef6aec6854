package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/academia/assets"
	"github.com/trezcool/academia/core"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"

	maxPingAttempts = 30
)

// SourceMigrationsDir is where the migrations live in the source tree.
var SourceMigrationsDir = filepath.Join("assets", assets.MigrationsDir)

var gooseDialects = map[string]string{
	EnginePostgres: "postgres",
	EngineSQLite:   "sqlite3",
}

func init() {
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
}

func dataSourceName(dbName string, admin bool, conf *core.Config) string {
	if conf.Database.Engine == EngineSQLite {
		q := make(url.Values)
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "busy_timeout(5000)")
		q.Set("_time_format", "sqlite")
		return "file:" + dbName + "?" + q.Encode()
	}

	usr := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		usr = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     usr,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(ctx context.Context, dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	engine := conf.Database.Engine
	if _, ok := gooseDialects[engine]; !ok {
		return nil, errors.Errorf("unsupported database engine %q", engine)
	}

	db, err := sqlx.Open(engine, dataSourceName(dbName, admin, conf))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if engine == EngineSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if err = ping(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects to the configured database and waits for it to be ready.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	return open(ctx, conf.Database.Name, false, conf)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	for attempts := 1; attempts <= maxPingAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping canceled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, query, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

// CreateIfNotExist creates the app role and database on a postgres server, connecting as the admin user.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	// connect as admin
	db, err := open(ctx, "postgres", true, conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if conf.Database.User != "" {
		found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !found {
			q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
				pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password))
			if _, err = db.ExecContext(ctx, q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !found {
		q := "CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)
		if conf.Database.User != "" {
			q += " OWNER " + pq.QuoteIdentifier(conf.Database.User)
		}
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// Run runs a goose command against the embedded migrations.
// "create" and "fix" write to SourceMigrationsDir instead, so they must run from the repository root.
func Run(db *sqlx.DB, command string, args ...string) error {
	dialect, ok := gooseDialects[db.DriverName()]
	if !ok {
		return errors.Errorf("unsupported database engine %q", db.DriverName())
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	switch command {
	case "create", "fix":
		goose.SetBaseFS(nil)
		goose.SetSequential(true)
		return goose.Run(command, db.DB, SourceMigrationsDir, args...)
	}
	goose.SetBaseFS(assets.FS)
	return goose.Run(command, db.DB, assets.MigrationsDir, args...)
}

// Migrate applies all pending migrations.
func Migrate(db *sqlx.DB) error {
	if err := Run(db, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
