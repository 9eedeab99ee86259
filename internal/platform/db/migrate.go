package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schema string

// schemaLockKey serialises concurrent bootstraps across replicas.
const schemaLockKey int64 = 0x626c6f67

// Schema returns the bootstrap DDL.
func Schema() string { return schema }

// Migrate applies the bootstrap schema. Every statement is idempotent.
func Migrate(ctx context.Context, db TxBeginner) error {
	return WithTx(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
			return fmt.Errorf("platform/db: schema lock: %w", err)
		}
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("platform/db: apply schema: %w", err)
		}
		return nil
	})
}
