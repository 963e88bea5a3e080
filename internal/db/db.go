// Package db provides PostgreSQL-backed repositories for plots, weather,
// risk events and batch summaries. All repositories accept a DBTX interface
// that is satisfied by both *pgxpool.Pool and pgx.Tx, so the same code runs
// inside or outside a transaction.
package db

import (
	"context"
	_ "embed"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"plotrisk/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by ApplySchema.
func Schema() string {
	return schemaSQL
}

// ApplySchema creates the tables and indexes if they do not exist. It is
// intended for local bootstrap; every statement is idempotent.
func ApplySchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to apply schema", err)
	}
	return nil
}

// nullFloat maps a missing reading to SQL NULL.
func nullFloat(v float64) *float64 {
	if types.IsMissing(v) {
		return nil
	}
	return &v
}

// floatOrMissing maps SQL NULL back to types.Missing.
func floatOrMissing(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return types.Missing
	}
	return *v
}
