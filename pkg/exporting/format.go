// Package exporting provides unified read/write interfaces for recording formats.
package exporting

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Record is a generic map representing a single recorded row.
type Record = map[string]interface{}

// Schema defines the structure of records.
type Schema struct {
	Columns []Column
}

// Column describes a single field in the schema. Nullable columns accept nil.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// ColumnType indicates the data type of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt64
	TypeFloat64
	TypeBool
)

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Format defines the interface for a data format.
type Format interface {
	Name() string
	Extensions() []string
	Reader() Reader
	Writer() Writer
}

// Reader reads records from a file.
type Reader interface {
	Open(path string) error
	Read() ([]Record, error)
	Close() error
}

// Writer writes records to a file. A nil schema lets the writer infer
// columns from the first record.
type Writer interface {
	Init(path string, schema *Schema) error
	Write(record Record) error
	WriteBatch(records []Record) error
	Flush() error
	Close() error
	Path() string
}

// Registry management
var (
	registry    = make(map[string]Format)
	extRegistry = make(map[string]Format)
)

// Register adds a format to the registry.
func Register(f Format) {
	name := strings.ToLower(f.Name())
	registry[name] = f
	for _, ext := range f.Extensions() {
		extRegistry[strings.ToLower(ext)] = f
	}
}

// Get returns a format by name.
func Get(name string) (Format, bool) {
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// GetByExtension returns a format by file extension.
func GetByExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, ok := extRegistry[ext]
	return f, ok
}

// GetByPath returns a format based on the file's extension.
func GetByPath(path string) (Format, bool) {
	return GetByExtension(filepath.Ext(path))
}

// Formats returns all registered format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extension returns the primary file extension for a format name.
func Extension(format string) string {
	if f, ok := Get(format); ok {
		return f.Extensions()[0]
	}
	return ".jsonl"
}

// LoadRecords loads all records from a file.
func LoadRecords(path string) ([]Record, error) {
	f, ok := GetByPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported format for file: %s", path)
	}

	reader := f.Reader()
	if err := reader.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	records, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// SaveRecords writes records to a file.
func SaveRecords(path string, records []Record, schema *Schema) error {
	f, ok := GetByPath(path)
	if !ok {
		return fmt.Errorf("unsupported format for file: %s", path)
	}

	writer := f.Writer()
	if err := writer.Init(path, schema); err != nil {
		return fmt.Errorf("failed to initialize writer: %w", err)
	}

	if err := writer.WriteBatch(records); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}

	if err := writer.Flush(); err != nil {
		writer.Close()
		return fmt.Errorf("failed to flush: %w", err)
	}

	return writer.Close()
}

// ExtractSchema infers a schema from records, columns sorted by name.
func ExtractSchema(records []Record) *Schema {
	columns := make(map[string]ColumnType)
	for _, r := range records {
		for k, v := range r {
			if v == nil {
				continue
			}
			if _, exists := columns[k]; !exists {
				columns[k] = inferType(v)
			}
		}
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	schema := &Schema{Columns: make([]Column, 0, len(names))}
	for _, name := range names {
		schema.Columns = append(schema.Columns, Column{Name: name, Type: columns[name], Nullable: true})
	}
	return schema
}

func inferType(v interface{}) ColumnType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt64
	case float32, float64:
		return TypeFloat64
	case bool:
		return TypeBool
	default:
		return TypeString
	}
}
