package exporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/parquet-go/parquet-go"

	"ServingDashboard/pkg/utils"
)

const ParquetBatchSize = 1000

func init() {
	Register(&ParquetFormat{})
}

// ParquetFormat handles Parquet files.
type ParquetFormat struct{}

func (f *ParquetFormat) Name() string         { return "parquet" }
func (f *ParquetFormat) Extensions() []string { return []string{".parquet"} }
func (f *ParquetFormat) Reader() Reader       { return &ParquetReader{} }
func (f *ParquetFormat) Writer() Writer       { return &ParquetWriter{} }

// ParquetReader reads Parquet files.
type ParquetReader struct {
	file  *os.File
	pfile *parquet.File
}

func (r *ParquetReader) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	r.file = file

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to open parquet file: %w", err)
	}
	r.pfile = pf
	return nil
}

// Read returns every row; null cells are left out of the record.
func (r *ParquetReader) Read() ([]Record, error) {
	if r.pfile == nil {
		return nil, fmt.Errorf("reader not initialized")
	}

	fields := r.pfile.Schema().Fields()
	fieldNames := make([]string, len(fields))
	for i, f := range fields {
		fieldNames[i] = f.Name()
	}

	records := make([]Record, 0, r.pfile.NumRows())
	rowBuf := make([]parquet.Row, 100)

	for _, rg := range r.pfile.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(rowBuf)
			for i := 0; i < n; i++ {
				record := make(Record, len(fields))
				for _, val := range rowBuf[i] {
					col := val.Column()
					if col < 0 || col >= len(fieldNames) || val.IsNull() {
						continue
					}
					record[fieldNames[col]] = parquetValueToGo(val)
				}
				records = append(records, record)
			}
			if err != nil {
				if err != io.EOF {
					rows.Close()
					return nil, fmt.Errorf("failed to read rows: %w", err)
				}
				break
			}
			if n == 0 {
				break
			}
		}
		rows.Close()
	}
	return records, nil
}

func parquetValueToGo(v parquet.Value) interface{} {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func (r *ParquetReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParquetWriter writes Parquet files using the Row API. Every column is
// optional so absent values are stored as nulls.
type ParquetWriter struct {
	path    string
	file    *os.File
	writer  *parquet.Writer
	schema  *Schema
	columns []Column
	buffer  []parquet.Row
	mu      sync.Mutex
}

func (w *ParquetWriter) Init(path string, schema *Schema) error {
	w.path = path
	w.schema = schema
	w.buffer = make([]parquet.Row, 0, ParquetBatchSize)
	if schema != nil && len(schema.Columns) > 0 {
		return w.open(schema)
	}
	return nil
}

// open creates the file. Parquet groups order their fields by name, so the
// row layout follows the sorted column list.
func (w *ParquetWriter) open(schema *Schema) error {
	w.columns = append([]Column(nil), schema.Columns...)
	sort.Slice(w.columns, func(i, j int) bool { return w.columns[i].Name < w.columns[j].Name })

	group := make(parquet.Group, len(w.columns))
	for _, c := range w.columns {
		group[c.Name] = columnNode(c.Type)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w.file = file
	w.writer = parquet.NewWriter(file, parquet.NewSchema("record", group),
		parquet.Compression(&parquet.Snappy),
	)
	return nil
}

func columnNode(t ColumnType) parquet.Node {
	switch t {
	case TypeInt64:
		return parquet.Optional(parquet.Int(64))
	case TypeFloat64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case TypeBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

func (w *ParquetWriter) recordToRow(record Record) parquet.Row {
	row := make(parquet.Row, len(w.columns))
	for i, c := range w.columns {
		row[i] = toParquetValue(c.Type, record[c.Name], i)
	}
	return row
}

func toParquetValue(t ColumnType, val interface{}, columnIndex int) parquet.Value {
	null := parquet.NullValue().Level(0, 0, columnIndex)
	if val == nil {
		return null
	}
	switch t {
	case TypeInt64:
		if i, ok := utils.ToInt64Ok(val); ok {
			return parquet.Int64Value(i).Level(0, 1, columnIndex)
		}
	case TypeFloat64:
		if f, ok := utils.ToFloat64Ok(val); ok {
			return parquet.DoubleValue(f).Level(0, 1, columnIndex)
		}
	case TypeBool:
		if b, ok := val.(bool); ok {
			return parquet.BooleanValue(b).Level(0, 1, columnIndex)
		}
	default:
		return parquet.ByteArrayValue([]byte(utils.ToString(val))).Level(0, 1, columnIndex)
	}
	return null
}

func (w *ParquetWriter) Write(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(record)
}

func (w *ParquetWriter) write(record Record) error {
	if w.writer == nil {
		if err := w.open(ExtractSchema([]Record{record})); err != nil {
			return err
		}
	}
	w.buffer = append(w.buffer, w.recordToRow(record))
	if len(w.buffer) >= ParquetBatchSize {
		return w.flushBuffer()
	}
	return nil
}

func (w *ParquetWriter) WriteBatch(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range records {
		if err := w.write(r); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return nil
}

func (w *ParquetWriter) flushBuffer() error {
	if len(w.buffer) == 0 || w.writer == nil {
		return nil
	}
	if _, err := w.writer.WriteRows(w.buffer); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	w.buffer = w.buffer[:0]
	return nil
}

func (w *ParquetWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushBuffer(); err != nil {
		return err
	}
	if w.writer != nil {
		return w.writer.Flush()
	}
	return nil
}

func (w *ParquetWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.writer != nil {
		if err := w.writer.Close(); err != nil {
			return err
		}
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

func (w *ParquetWriter) Path() string { return w.path }
