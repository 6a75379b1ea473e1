// Package store is the sqlx-backed persistence layer: one repository type
// per aggregate, each satisfying the narrow Repository interfaces the
// internal/* packages declare, using sqlx's Get/Select/NamedExec over
// hand-written rows.Scan chains.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL. The DSN should carry parseTime=true&loc=UTC so
// every timestamp round-trips in UTC end to end.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}
