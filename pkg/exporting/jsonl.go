package exporting

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"ServingDashboard/pkg/utils"
)

const (
	DefaultBufferSize = 64 * 1024
	MaxLineSize       = 10 * 1024 * 1024
)

func init() {
	Register(&JSONLFormat{})
}

// JSONLFormat stores recordings as JSON Lines: one row per line, keys in
// schema column order so a file reads like the table it holds.
type JSONLFormat struct{}

func (f *JSONLFormat) Name() string         { return "jsonl" }
func (f *JSONLFormat) Extensions() []string { return []string{".jsonl", ".json"} }
func (f *JSONLFormat) Reader() Reader       { return &JSONLReader{schema: RecordSchema} }
func (f *JSONLFormat) Writer() Writer       { return &JSONLWriter{} }

// JSONLReader decodes recording rows. Integer and boolean columns of the
// schema are restored to int64 and bool, and every row must name its
// family, key and tick.
type JSONLReader struct {
	schema *Schema
	file   *os.File
	reader *bufio.Reader
}

func (r *JSONLReader) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	r.file = file
	r.reader = bufio.NewReaderSize(file, DefaultBufferSize)
	return nil
}

// Read decodes every line. A malformed line is an error carrying its line
// number, except a final line without a newline, which is a write cut short
// and is dropped.
func (r *JSONLReader) Read() ([]Record, error) {
	var records []Record
	for n := 1; ; n++ {
		line, err := r.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return records, fmt.Errorf("line %d: %w", n, err)
		}
		truncated := errors.Is(err, io.EOF)
		if len(line) > MaxLineSize {
			return records, fmt.Errorf("line %d: longer than %d bytes", n, MaxLineSize)
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			record, derr := r.decode(line)
			switch {
			case derr != nil && truncated:
			case derr != nil:
				return records, fmt.Errorf("line %d: %w", n, derr)
			default:
				records = append(records, record)
			}
		}
		if truncated {
			return records, nil
		}
	}
}

func (r *JSONLReader) decode(line []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("not an object")
	}
	if r.schema == nil {
		return record, nil
	}

	for _, col := range r.schema.Columns {
		v, ok := record[col.Name]
		if !ok || v == nil {
			continue
		}
		switch col.Type {
		case TypeInt64:
			n, ok := utils.ToInt64Ok(v)
			if !ok {
				return nil, fmt.Errorf("column %s: %v is not an integer", col.Name, v)
			}
			record[col.Name] = n
		case TypeBool:
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("column %s: %v is not a boolean", col.Name, v)
			}
			record[col.Name] = b
		}
	}

	for _, name := range []string{"family", "key"} {
		if s, _ := record[name].(string); s == "" {
			return nil, fmt.Errorf("missing %s", name)
		}
	}
	if tick, ok := record["tick"].(int64); !ok || tick < 0 {
		return nil, fmt.Errorf("missing or negative tick: %v", record["tick"])
	}
	return record, nil
}

func (r *JSONLReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// JSONLWriter writes rows with keys in schema order followed by any extra
// keys sorted by name. A non-nullable column must be present and non-nil.
// Without a schema the columns are inferred from the first row.
type JSONLWriter struct {
	path   string
	schema *Schema
	file   *os.File
	writer *bufio.Writer
	line   bytes.Buffer
	mu     sync.Mutex
}

func (w *JSONLWriter) Init(path string, schema *Schema) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w.path = path
	w.schema = schema
	w.file = file
	w.writer = bufio.NewWriterSize(file, DefaultBufferSize)
	return nil
}

func (w *JSONLWriter) Write(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLine(record)
}

func (w *JSONLWriter) WriteBatch(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range records {
		if err := w.writeLine(r); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return nil
}

func (w *JSONLWriter) writeLine(record Record) error {
	if w.schema == nil {
		w.schema = ExtractSchema([]Record{record})
	}

	w.line.Reset()
	w.line.WriteByte('{')
	written := make(map[string]struct{}, len(w.schema.Columns))
	for _, col := range w.schema.Columns {
		v := record[col.Name]
		if v == nil && !col.Nullable {
			return fmt.Errorf("column %s is not nullable", col.Name)
		}
		if err := w.field(len(written) > 0, col.Name, v); err != nil {
			return err
		}
		written[col.Name] = struct{}{}
	}
	for _, name := range sortedKeys(record) {
		if _, ok := written[name]; ok {
			continue
		}
		if err := w.field(len(written) > 0, name, record[name]); err != nil {
			return err
		}
		written[name] = struct{}{}
	}
	w.line.WriteString("}\n")

	if _, err := w.writer.Write(w.line.Bytes()); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

func (w *JSONLWriter) field(comma bool, name string, v interface{}) error {
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("column %s: %w", name, err)
	}
	key, _ := json.Marshal(name)
	if comma {
		w.line.WriteByte(',')
	}
	w.line.Write(key)
	w.line.WriteByte(':')
	w.line.Write(val)
	return nil
}

func (w *JSONLWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer != nil {
		return w.writer.Flush()
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

func (w *JSONLWriter) Path() string { return w.path }
