package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Connect opens and pings a PostgreSQL connection
func Connect(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required for export")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("failed to connect to database: %w", err))
	}
	return db, nil
}

// ExportRepository loads survey tables into PostgreSQL
type ExportRepository struct {
	db  *sqlx.DB
	log *internal.Logger
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *sqlx.DB, log *internal.Logger) *ExportRepository {
	return &ExportRepository{db: db, log: log}
}

// Export replaces tableName with the contents of data. Every column is TEXT
// and empty cells become NULL. The whole load runs in one transaction, so a
// failed export leaves the previous table in place.
func (r *ExportRepository) Export(ctx context.Context, tableName string, data *survey.Table) (int, error) {
	if len(data.Headers) == 0 {
		return 0, errors.InvalidInput("cannot export a table without columns")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, r.dbError("failed to begin export transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, DropTableStatement(tableName)); err != nil {
		return 0, r.dbError("failed to drop previous export", err)
	}
	if _, err := tx.ExecContext(ctx, CreateTableStatement(tableName, data.Headers)); err != nil {
		return 0, r.dbError("failed to create export table", err)
	}

	stmt, err := tx.PreparexContext(ctx, InsertStatement(tableName, data.Headers))
	if err != nil {
		return 0, r.dbError("failed to prepare insert", err)
	}
	defer stmt.Close()

	for i, row := range data.Rows {
		if _, err := stmt.ExecContext(ctx, RowArgs(data.Headers, row)...); err != nil {
			return 0, r.dbError(fmt.Sprintf("failed to insert row %d", i+1), err)
		}
	}

	stored, err := countRows(ctx, tx, tableName)
	if err != nil {
		return 0, r.dbError("failed to count exported rows", err)
	}
	if stored != data.Len() {
		return 0, errors.DatabaseError(fmt.Sprintf("export into %s stored %d rows, expected %d", tableName, stored, data.Len()))
	}

	if err := tx.Commit(); err != nil {
		return 0, r.dbError("failed to commit export", err)
	}

	r.log.Info("Exported %d rows into %s", data.Len(), tableName)
	return data.Len(), nil
}

// countRows checks what the transaction actually stored before committing
func countRows(ctx context.Context, q sqlx.QueryerContext, tableName string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, CountStatement(tableName))
	return count, err
}

func (r *ExportRepository) dbError(message string, err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		r.log.Debug("postgres error %s (%s): %s", pqErr.Code, pqErr.Code.Name(), pqErr.Message)
	}
	return errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("%s: %w", message, err))
}

// CountStatement counts the rows of an export table
func CountStatement(tableName string) string {
	return "SELECT COUNT(*) FROM " + QuoteTable(tableName)
}

// QuoteTable quotes a table name, keeping an optional schema qualifier
func QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// DropTableStatement removes a previous export
func DropTableStatement(tableName string) string {
	return "DROP TABLE IF EXISTS " + QuoteTable(tableName)
}

// CreateTableStatement declares one TEXT column per header
func CreateTableStatement(tableName string, headers []string) string {
	columns := make([]string, len(headers))
	for i, h := range headers {
		columns[i] = pq.QuoteIdentifier(h) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteTable(tableName), strings.Join(columns, ", "))
}

// InsertStatement builds a positional insert for one row
func InsertStatement(tableName string, headers []string) string {
	columns := make([]string, len(headers))
	placeholders := make([]string, len(headers))
	for i, h := range headers {
		columns[i] = pq.QuoteIdentifier(h)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteTable(tableName), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// RowArgs orders a row's values by header, mapping empty cells to NULL
func RowArgs(headers []string, row survey.Row) []interface{} {
	args := make([]interface{}, len(headers))
	for i, h := range headers {
		args[i] = sql.NullString{String: row[h], Valid: row[h] != ""}
	}
	return args
}
