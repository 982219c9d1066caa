// Package sqlite implements backend.Client on a local SQLite database with the
// same tables as the hosted backend.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/id"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout matches the schema's strftime defaults so text ordering is chronological.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Tables whose id is generated when an insert leaves it empty.
var generatedIDs = map[string]bool{
	backend.TableProducts:   true,
	backend.TableBlogPosts:  true,
	backend.TableCategories: true,
}

// Store is a backend.Client over SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// declared column types per table, upper-cased
	columns map[string]map[string]string
}

var _ backend.Client = (*Store)(nil)

// Open creates or opens the database at path.
// It configures WAL mode, sets pragmas, and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.loadColumns(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns "sqlite".
func (s *Store) Driver() string { return "sqlite" }

// loadColumns reads the declared type of every column so rows can be decoded
// back into JSON-shaped values.
func (s *Store) loadColumns() error {
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()

	s.columns = make(map[string]map[string]string, len(tables))
	for _, table := range tables {
		info, err := s.db.Query("PRAGMA table_info(" + table + ")")
		if err != nil {
			return fmt.Errorf("table info %s: %w", table, err)
		}
		cols := make(map[string]string)
		for info.Next() {
			var (
				cid, notNull, pk int
				name, typ        string
				dflt             sql.NullString
			)
			if err := info.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
				info.Close()
				return fmt.Errorf("scan table info %s: %w", table, err)
			}
			cols[name] = strings.ToUpper(typ)
		}
		info.Close()
		s.columns[table] = cols
	}
	return nil
}

// Select implements backend.Client.
func (s *Store) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.knownTable(q.Table); err != nil {
		return nil, err
	}

	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ", ")
	}
	where, args := whereClause(q)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", cols, q.Table, where)
	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			parts[i] = o.Column
			if o.Desc {
				parts[i] += " DESC"
			}
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, s.translate("select", q.Table, err)
	}
	defer rows.Close()
	return s.scanRows(q.Table, rows)
}

// Insert implements backend.Client. All rows are written in one transaction.
func (s *Store) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	if err := backend.From(table).Validate(); err != nil {
		return nil, err
	}
	if err := s.knownTable(table); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []backend.Row{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	out := make([]backend.Row, 0, len(rows))
	for _, row := range rows {
		if generatedIDs[table] {
			if rowID, _ := row.String("id"); rowID == "" {
				row = cloneRow(row)
				row["id"] = id.Row()
			}
		}
		names, args, err := s.assignments(table, row)
		if err != nil {
			return nil, err
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			table, strings.Join(names, ", "), placeholders(len(names)))

		result, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, s.translate("insert", table, err)
		}
		stored, err := s.scanRows(table, result)
		result.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, stored...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

// Update implements backend.Client.
func (s *Store) Update(ctx context.Context, q backend.Query, values backend.Row) ([]backend.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.knownTable(q.Table); err != nil {
		return nil, err
	}
	if len(q.Filters) == 0 && len(q.Or) == 0 {
		return nil, fmt.Errorf("refusing unfiltered update of %s", q.Table)
	}

	names, args, err := s.assignments(q.Table, values)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return s.Select(ctx, backend.Query{Table: q.Table, Filters: q.Filters, Or: q.Or})
	}
	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = n + " = ?"
	}
	where, whereArgs := whereClause(q)

	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", q.Table, strings.Join(sets, ", "), where)
	rows, err := s.db.QueryContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return nil, s.translate("update", q.Table, err)
	}
	defer rows.Close()
	return s.scanRows(q.Table, rows)
}

// Delete implements backend.Client.
func (s *Store) Delete(ctx context.Context, q backend.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if err := s.knownTable(q.Table); err != nil {
		return err
	}
	if len(q.Filters) == 0 && len(q.Or) == 0 {
		return fmt.Errorf("refusing unfiltered delete of %s", q.Table)
	}

	where, args := whereClause(q)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+q.Table+where, args...); err != nil {
		return s.translate("delete", q.Table, err)
	}
	return nil
}

// knownTable reports a missing table the way the hosted backend does.
func (s *Store) knownTable(table string) error {
	if _, ok := s.columns[table]; ok {
		return nil
	}
	return &backend.Error{
		Status:  404,
		Code:    "42P01",
		Message: fmt.Sprintf("relation %q does not exist", table),
	}
}

// assignments returns sorted column names and encoded values for a write.
func (s *Store) assignments(table string, row backend.Row) ([]string, []any, error) {
	cols := s.columns[table]
	names := sortedKeys(row)
	if err := backend.From(table).Select(names...).Validate(); err != nil {
		return nil, nil, err
	}
	args := make([]any, len(names))
	for i, n := range names {
		if _, ok := cols[n]; !ok {
			return nil, nil, &backend.Error{
				Status:  400,
				Code:    "PGRST204",
				Message: fmt.Sprintf("column %q of %s does not exist", n, table),
			}
		}
		v, err := encodeValue(row[n])
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s.%s: %w", table, n, err)
		}
		args[i] = v
	}
	return names, args, nil
}

func (s *Store) scanRows(table string, rows *sql.Rows) ([]backend.Row, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	types := s.columns[table]

	out := []backend.Row{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(backend.Row, len(names))
		for i, n := range names {
			row[n] = decodeValue(types[n], values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// translate maps SQLite failures onto the backend's error codes.
func (s *Store) translate(op, table string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &backend.Error{Status: 409, Code: "23505", Message: se.Error()}
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return &backend.Error{Status: 409, Code: "23503", Message: se.Error()}
		}
	}
	s.logger.Warn("sqlite statement failed", "op", op, "table", table, "error", err)
	return fmt.Errorf("%s %s: %w", op, table, err)
}

func encodeValue(v any) (any, error) {
	switch x := v.(type) {
	case []string, []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case time.Time:
		return x.UTC().Format(timeLayout), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return x.UTC().Format(timeLayout), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return v, nil
	}
}

func decodeValue(declType string, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch declType {
	case "JSON":
		if s, ok := v.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	case "BOOLEAN":
		if n, ok := v.(int64); ok {
			return n != 0
		}
	}
	return v
}

func cloneRow(r backend.Row) backend.Row {
	out := make(backend.Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}
