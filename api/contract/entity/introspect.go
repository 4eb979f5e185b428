// Package entity derives schema components from live database tables.
// It introspects column definitions across the three supported
// dialects and lowers them into the same type expressions the source
// scanner produces, so entity-backed schemas flow through the ordinary
// translation pipeline.
package entity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/celsowm/adorn-api/api/contract"
)

// Column is one introspected table column.
type Column struct {
	Name     string
	DataType string // dialect-native type name, lowercased
	Nullable bool
	Primary  bool
}

// Table is one introspected table.
type Table struct {
	Name    string
	Dialect string
	Columns []Column
}

// Open connects to the database behind a URL and verifies the
// connection. The caller owns the returned handle.
func Open(ctx context.Context, dbURL string) (*sql.DB, string, error) {
	dialect, err := InferDialect(dbURL)
	if err != nil {
		return nil, "", err
	}
	driver, dsn, err := DriverAndDSN(dbURL)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, dialect, nil
}

// Introspect reads the column definitions of one table.
func Introspect(ctx context.Context, db *sql.DB, dialect, table string) (*Table, error) {
	var (
		cols []Column
		err  error
	)
	switch dialect {
	case DialectSQLite:
		cols, err = sqliteColumns(ctx, db, table)
	case DialectPostgres:
		cols, err = postgresColumns(ctx, db, table)
	case DialectMySQL:
		cols, err = mysqlColumns(ctx, db, table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, dialect)
	}
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q has no columns or does not exist", table)
	}
	return &Table{Name: table, Dialect: dialect, Columns: cols}, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	// PRAGMA does not take placeholders; quote the identifier instead.
	quoted := strings.ReplaceAll(table, `"`, `""`)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, quoted))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %q: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, Column{
			Name:     name,
			DataType: strings.ToLower(ctype),
			Nullable: notNull == 0 && pk == 0,
			Primary:  pk > 0,
		})
	}
	return cols, rows.Err()
}

func postgresColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	const q = `
		SELECT c.column_name, c.data_type, c.is_nullable,
		       EXISTS (
		           SELECT 1 FROM information_schema.key_column_usage k
		           JOIN information_schema.table_constraints tc
		             ON tc.constraint_name = k.constraint_name
		            AND tc.table_schema = k.table_schema
		           WHERE k.table_schema = c.table_schema
		             AND k.table_name = c.table_name
		             AND k.column_name = c.column_name
		             AND tc.constraint_type = 'PRIMARY KEY'
		       ) AS is_primary
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`
	return scanColumns(ctx, db, q, table)
}

func mysqlColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, is_nullable,
		       column_key = 'PRI' AS is_primary
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`
	return scanColumns(ctx, db, q, table)
}

func scanColumns(ctx context.Context, db *sql.DB, query, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns for %q: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			name     string
			dataType string
			nullable string
			primary  bool
		)
		if err := rows.Scan(&name, &dataType, &nullable, &primary); err != nil {
			return nil, err
		}
		cols = append(cols, Column{
			Name:     name,
			DataType: strings.ToLower(dataType),
			Nullable: strings.EqualFold(nullable, "YES"),
			Primary:  primary,
		})
	}
	return cols, rows.Err()
}

// TypeExpr lowers an introspected table into an object type expression
// named after the table, ready for the schema translator. Nullable
// columns become nullable members the same way pointer fields do in
// scanned Go types.
func (t *Table) TypeExpr() *contract.TypeExpr {
	fields := make([]contract.TypeField, 0, len(t.Columns))
	for _, col := range t.Columns {
		ft := columnType(col.DataType)
		if col.Nullable {
			ft = contract.NullableExpr(ft)
		}
		fields = append(fields, contract.TypeField{Name: col.Name, Type: ft})
	}
	return &contract.TypeExpr{
		Kind:   contract.TypeObject,
		Name:   "entity." + exportedName(t.Name),
		Fields: fields,
	}
}

// columnType maps a dialect-native column type onto the wire model.
// Unrecognized types fall back to string, which every dialect can
// round-trip.
func columnType(dataType string) *contract.TypeExpr {
	base, _, _ := strings.Cut(dataType, "(")
	switch strings.TrimSpace(base) {
	case "int", "integer", "bigint", "smallint", "tinyint", "mediumint", "int2", "int4", "int8", "serial", "bigserial":
		return contract.IntExpr
	case "real", "float", "double", "double precision", "numeric", "decimal":
		return contract.NumberExpr
	case "bool", "boolean":
		return contract.BoolExpr
	case "uuid":
		return contract.UUIDExpr
	case "date", "datetime", "timestamp", "timestamptz", "timestamp with time zone", "timestamp without time zone":
		return contract.TimeExpr
	case "blob", "bytea", "binary", "varbinary":
		return &contract.TypeExpr{Kind: contract.TypeString, Format: "byte"}
	default:
		return contract.StringExpr
	}
}

// exportedName converts a snake_case table name into an exported Go
// style name: "pet_owners" becomes "PetOwners".
func exportedName(table string) string {
	parts := strings.FieldsFunc(table, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return table
	}
	return b.String()
}
