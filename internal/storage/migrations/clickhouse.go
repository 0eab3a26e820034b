package migrations

import (
	"context"
	"fmt"
	"regexp"

	chstore "fx-impact-lab/internal/storage/clickhouse"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates database when missing, applies every
// embedded statement and returns a connection to that database.
// An empty database falls back to the one named in dsn.
// ClickHouse schemas use IF NOT EXISTS throughout, so re-running is a no-op.
func RunClickhouseMigrations(ctx context.Context, dsn, database string) (*chstore.Conn, error) {
	if database == "" {
		var err error
		if database, err = databaseFromDSN(dsn); err != nil {
			return nil, err
		}
	}
	if !identifierPattern.MatchString(database) {
		return nil, fmt.Errorf("invalid clickhouse database name %q", database)
	}

	migrations, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	for _, m := range migrations {
		if err := validateNoSemicolonInStrings(m.SQL); err != nil {
			return nil, fmt.Errorf("validate migration %s: %w", m.Version, err)
		}
	}

	admin, err := chstore.NewConn(ctx, dsn, chstore.WithDatabase(""))
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+database)
	_ = admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", database, err)
	}

	conn, err := chstore.NewConn(ctx, dsn, chstore.WithDatabase(database))
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", database, err)
	}

	// The native protocol takes one statement per Exec
	for _, m := range migrations {
		for _, stmt := range splitStatements(m.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
		}
	}
	return conn, nil
}

func databaseFromDSN(dsn string) (string, error) {
	opts, err := chstore.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if opts.Auth.Database == "" {
		return "", fmt.Errorf("clickhouse dsn has no database and none is configured")
	}
	return opts.Auth.Database, nil
}
