package exporting

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteTable is the table every recording is written to.
const SQLiteTable = "records"

func init() {
	Register(&SQLiteFormat{})
}

// SQLiteFormat stores records in a single table of a SQLite database.
type SQLiteFormat struct{}

func (f *SQLiteFormat) Name() string         { return "sqlite" }
func (f *SQLiteFormat) Extensions() []string { return []string{".db", ".sqlite"} }
func (f *SQLiteFormat) Reader() Reader       { return &SQLiteReader{} }
func (f *SQLiteFormat) Writer() Writer       { return &SQLiteWriter{} }

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(t ColumnType) string {
	switch t {
	case TypeInt64, TypeBool:
		return "INTEGER"
	case TypeFloat64:
		return "REAL"
	default:
		return "TEXT"
	}
}

// SQLiteReader reads the records table.
type SQLiteReader struct {
	db *sql.DB
}

func (r *SQLiteReader) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	r.db = db
	return nil
}

func (r *SQLiteReader) Read() ([]Record, error) {
	rows, err := r.db.Query("SELECT * FROM " + quoteIdent(SQLiteTable))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var records []Record
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return records, fmt.Errorf("scan row: %w", err)
		}
		record := make(Record, len(cols))
		for i, name := range cols {
			switch v := vals[i].(type) {
			case nil:
			case []byte:
				record[name] = string(v)
			default:
				record[name] = v
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SQLiteWriter inserts records inside a transaction that is committed on
// every Flush.
type SQLiteWriter struct {
	path    string
	db      *sql.DB
	tx      *sql.Tx
	stmt    *sql.Stmt
	columns []Column
	mu      sync.Mutex
}

func (w *SQLiteWriter) Init(path string, schema *Schema) error {
	// Recordings are never appended to.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	w.path = path
	w.db = db
	if schema != nil && len(schema.Columns) > 0 {
		return w.migrate(schema)
	}
	return nil
}

func (w *SQLiteWriter) migrate(schema *Schema) error {
	w.columns = append([]Column(nil), schema.Columns...)
	defs := make([]string, len(w.columns))
	for i, c := range w.columns {
		defs[i] = quoteIdent(c.Name) + " " + sqlType(c.Type)
		if !c.Nullable {
			defs[i] += " NOT NULL"
		}
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(SQLiteTable), strings.Join(defs, ", "))
	if _, err := w.db.Exec(stmt); err != nil {
		return fmt.Errorf("create %s table: %w", SQLiteTable, err)
	}
	return nil
}

func (w *SQLiteWriter) begin() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	names := make([]string, len(w.columns))
	marks := make([]string, len(w.columns))
	for i, c := range w.columns {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(SQLiteTable), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	w.tx, w.stmt = tx, stmt
	return nil
}

func (w *SQLiteWriter) Write(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.insert(record)
}

func (w *SQLiteWriter) insert(record Record) error {
	if w.columns == nil {
		if err := w.migrate(ExtractSchema([]Record{record})); err != nil {
			return err
		}
	}
	if w.tx == nil {
		if err := w.begin(); err != nil {
			return err
		}
	}
	args := make([]interface{}, len(w.columns))
	for i, c := range w.columns {
		v := record[c.Name]
		if b, ok := v.(bool); ok {
			v = 0
			if b {
				v = 1
			}
		}
		args[i] = v
	}
	if _, err := w.stmt.Exec(args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) WriteBatch(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range records {
		if err := w.insert(r); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return nil
}

func (w *SQLiteWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commit()
}

func (w *SQLiteWriter) commit() error {
	if w.tx == nil {
		return nil
	}
	_ = w.stmt.Close()
	err := w.tx.Commit()
	w.tx, w.stmt = nil, nil
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	if err := w.Flush(); err != nil {
		_ = w.db.Close()
		return err
	}
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

func (w *SQLiteWriter) Path() string { return w.path }
