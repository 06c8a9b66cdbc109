package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/99minutos/catalog-system/internal/pkg/pgenum"
)

// Table names used by the catalog.
const (
	ItemsTable      = "items"
	PropertiesTable = "properties"
	UsersTable      = "users"
)

// SchemaOptions names the enum backing items.color. ColorType is the
// Postgres type created for it; sqlite stores a CHECK-constrained TEXT.
type SchemaOptions struct {
	ColorEnum pgenum.Descriptor
	ColorType string
}

// EnsureSchema creates the catalog tables when they do not exist. It is not a
// migration tool: existing tables are left untouched.
func EnsureSchema(ctx context.Context, db *DB, opts SchemaOptions) error {
	var stmts []string
	switch db.dialect {
	case Postgres:
		stmts = postgresSchema(opts)
	case SQLite:
		stmts = sqliteSchema(opts)
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "sqldb: bootstrap schema: %s", firstLine(stmt))
		}
	}
	db.logger.Info().Int("statements", len(stmts)).Msg("schema ensured")
	return nil
}

func enumList(d pgenum.Descriptor) string {
	return strings.Join(lo.Map(d.Labels(), func(l string, _ int) string {
		return "'" + strings.ReplaceAll(l, "'", "''") + "'"
	}), ", ")
}

func postgresSchema(opts SchemaOptions) []string {
	colorType := quote(opts.ColorType)
	return []string{
		fmt.Sprintf(`DO $$ BEGIN
	CREATE TYPE %s AS ENUM (%s);
EXCEPTION WHEN duplicate_object THEN NULL;
END $$`, colorType, enumList(opts.ColorEnum)),

		`CREATE TABLE IF NOT EXISTS "items" (
	"id"          BIGSERIAL PRIMARY KEY,
	"name"        TEXT NOT NULL,
	"description" TEXT NOT NULL DEFAULT '',
	"color"       ` + colorType + `,
	"active"      BOOLEAN NOT NULL DEFAULT FALSE,
	"version"     BIGINT NOT NULL DEFAULT 1,
	"created_at"  TIMESTAMPTZ NOT NULL,
	"created_by"  TEXT NOT NULL DEFAULT '',
	"modified_at" TIMESTAMPTZ,
	"modified_by" TEXT NOT NULL DEFAULT '',
	"deleted_at"  TIMESTAMPTZ,
	"deleted_by"  TEXT NOT NULL DEFAULT ''
)`,

		`CREATE TABLE IF NOT EXISTS "properties" (
	"id"       UUID PRIMARY KEY,
	"owner_id" BIGINT NOT NULL,
	"key"      TEXT NOT NULL,
	"value"    TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS "properties_owner_id_idx" ON "properties" ("owner_id")`,

		`CREATE TABLE IF NOT EXISTS "users" (
	"id"            BIGSERIAL PRIMARY KEY,
	"username"      TEXT NOT NULL UNIQUE,
	"email"         TEXT NOT NULL DEFAULT '',
	"password_hash" TEXT NOT NULL,
	"role"          TEXT NOT NULL,
	"created_at"    TIMESTAMPTZ NOT NULL,
	"created_by"    TEXT NOT NULL DEFAULT '',
	"modified_at"   TIMESTAMPTZ,
	"modified_by"   TEXT NOT NULL DEFAULT '',
	"deleted_at"    TIMESTAMPTZ,
	"deleted_by"    TEXT NOT NULL DEFAULT ''
)`,
	}
}

func sqliteSchema(opts SchemaOptions) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS "items" (
	"id"          INTEGER PRIMARY KEY AUTOINCREMENT,
	"name"        TEXT NOT NULL,
	"description" TEXT NOT NULL DEFAULT '',
	"color"       TEXT CHECK ("color" IN (` + enumList(opts.ColorEnum) + `)),
	"active"      BOOLEAN NOT NULL DEFAULT 0,
	"version"     INTEGER NOT NULL DEFAULT 1,
	"created_at"  DATETIME NOT NULL,
	"created_by"  TEXT NOT NULL DEFAULT '',
	"modified_at" DATETIME,
	"modified_by" TEXT NOT NULL DEFAULT '',
	"deleted_at"  DATETIME,
	"deleted_by"  TEXT NOT NULL DEFAULT ''
)`,

		`CREATE TABLE IF NOT EXISTS "properties" (
	"id"       TEXT PRIMARY KEY,
	"owner_id" INTEGER NOT NULL,
	"key"      TEXT NOT NULL,
	"value"    TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS "properties_owner_id_idx" ON "properties" ("owner_id")`,

		`CREATE TABLE IF NOT EXISTS "users" (
	"id"            INTEGER PRIMARY KEY AUTOINCREMENT,
	"username"      TEXT NOT NULL UNIQUE,
	"email"         TEXT NOT NULL DEFAULT '',
	"password_hash" TEXT NOT NULL,
	"role"          TEXT NOT NULL,
	"created_at"    DATETIME NOT NULL,
	"created_by"    TEXT NOT NULL DEFAULT '',
	"modified_at"   DATETIME,
	"modified_by"   TEXT NOT NULL DEFAULT '',
	"deleted_at"    DATETIME,
	"deleted_by"    TEXT NOT NULL DEFAULT ''
)`,
	}
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return line
}
