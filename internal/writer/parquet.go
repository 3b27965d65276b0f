// Package writer persists built tables as parquet files, locally or on S3.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// memoryFile implements the parquet source interface over a byte buffer so
// files can be assembled in memory before upload.
type memoryFile struct {
	buffer *bytes.Buffer
}

func newMemoryFile() *memoryFile {
	return &memoryFile{buffer: &bytes.Buffer{}}
}

func (m *memoryFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memoryFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memoryFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memoryFile) Read(b []byte) (int, error)                { return m.buffer.Read(b) }
func (m *memoryFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memoryFile) Close() error                              { return nil }
func (m *memoryFile) Bytes() []byte                             { return m.buffer.Bytes() }

// schemaField is one entry of the dynamic JSON schema handed to the parquet
// JSON writer.
type schemaField struct {
	Tag string `json:"Tag"`
}

type jsonSchema struct {
	Tag    string        `json:"Tag"`
	Fields []schemaField `json:"Fields"`
}

// tableSchema derives the parquet schema from the table's columns. The
// parquet type of a column follows the first non-missing cell: floats map to
// DOUBLE, bools to BOOLEAN, datetimes to INT64 epoch millis, everything else
// to UTF8. Every column is OPTIONAL because any cell may be missing.
func tableSchema(t *frame.Table) (string, error) {
	schema := jsonSchema{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, col := range t.Columns {
		typ := "type=BYTE_ARRAY, convertedtype=UTF8"
		for _, v := range t.Column(col) {
			if v.IsMissing() {
				continue
			}
			switch v.Kind() {
			case frame.KindFloat:
				typ = "type=DOUBLE"
			case frame.KindBool:
				typ = "type=BOOLEAN"
			case frame.KindTime:
				typ = "type=INT64"
			}
			break
		}
		schema.Fields = append(schema.Fields, schemaField{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", col, typ),
		})
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("encode parquet schema: %w", err)
	}
	return string(raw), nil
}

// rowJSON renders one table row for the JSON writer, matching the schema
// types produced by tableSchema.
func rowJSON(t *frame.Table, row map[string]frame.Value) (string, error) {
	out := make(map[string]any, len(t.Columns))
	for _, col := range t.Columns {
		v, ok := row[col]
		if !ok || v.IsMissing() {
			continue
		}
		switch v.Kind() {
		case frame.KindFloat, frame.KindBool:
			out[col] = v.Any()
		case frame.KindTime:
			ts, _ := v.Time()
			out[col] = ts.UnixMilli()
		default:
			out[col] = v.Format()
		}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode parquet row: %w", err)
	}
	return string(raw), nil
}

// TableToParquet serializes a table into an in-memory parquet file. An empty
// table yields no data and no error.
func TableToParquet(t *frame.Table, compression string) ([]byte, error) {
	if t == nil || t.Len() == 0 || len(t.Columns) == 0 {
		return nil, nil
	}

	schema, err := tableSchema(t)
	if err != nil {
		return nil, err
	}

	fw := newMemoryFile()
	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}

	switch strings.ToLower(compression) {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, row := range t.Rows {
		line, err := rowJSON(t, row)
		if err != nil {
			pw.WriteStop()
			return nil, err
		}
		if err := pw.Write(line); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}

	data := fw.Bytes()
	logger.GetLogger().WithComponent("table_writer").WithFields(logger.Fields{
		"kind":      string(t.Kind),
		"rows":      t.Len(),
		"columns":   len(t.Columns),
		"file_size": len(data),
	}).Debug("parquet file created")
	return data, nil
}
