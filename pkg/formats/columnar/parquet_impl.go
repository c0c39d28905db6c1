package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/mitodl/edupipe/pkg/models"
)

// parquetWriter implements Writer for Parquet format
type parquetWriter struct {
	writer         io.Writer
	config         *WriterConfig
	arrowSchema    *arrow.Schema
	fileWriter     *pqarrow.FileWriter
	recordBuilder  *array.RecordBuilder
	recordsWritten int64
	currentBatch   int
	mu             sync.Mutex
}

func newParquetWriter(w io.Writer, config *WriterConfig) (*parquetWriter, error) {
	if config.Schema == nil {
		return nil, fmt.Errorf("schema is required for Parquet writer")
	}

	arrowSchema, err := toArrowSchema(config.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to convert schema: %w", err)
	}

	pw := &parquetWriter{
		writer:      w,
		config:      config,
		arrowSchema: arrowSchema,
	}

	pool := memory.NewGoAllocator()
	pw.recordBuilder = array.NewRecordBuilder(pool, arrowSchema)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(parquetCompression(config.Compression)),
		parquet.WithDataPageSize(int64(config.PageSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pool),
	)

	// The parquet library closes the sink if it implements io.Closer,
	// but per the Writer contract the caller owns the underlying stream;
	// hide Close so it stays open.
	fw, err := pqarrow.NewFileWriter(arrowSchema, struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	pw.fileWriter = fw

	return pw, nil
}

func (pw *parquetWriter) WriteRecord(record *models.Record) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	for i, field := range pw.arrowSchema.Fields() {
		value := record.Data[field.Name]
		if err := appendValue(pw.recordBuilder.Field(i), value); err != nil {
			return fmt.Errorf("failed to append value for field %s: %w", field.Name, err)
		}
	}

	pw.currentBatch++

	if pw.currentBatch >= pw.config.BatchSize {
		return pw.flushBatch()
	}

	return nil
}

func (pw *parquetWriter) WriteRecords(records []*models.Record) error {
	for _, record := range records {
		if err := pw.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

func (pw *parquetWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.flushBatch()
}

func (pw *parquetWriter) Close() error {
	if err := pw.Flush(); err != nil {
		return err
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()

	if err := pw.fileWriter.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}

	return nil
}

func (pw *parquetWriter) Format() Format {
	return Parquet
}

func (pw *parquetWriter) RecordsWritten() int64 {
	return pw.recordsWritten
}

func (pw *parquetWriter) flushBatch() error {
	if pw.currentBatch == 0 {
		return nil
	}

	record := pw.recordBuilder.NewRecord()
	defer record.Release()

	if err := pw.fileWriter.WriteBuffered(record); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	pw.recordsWritten += int64(pw.currentBatch)
	pw.currentBatch = 0

	return nil
}

// parquetReader implements Reader for Parquet format
type parquetReader struct {
	config       *ReaderConfig
	fileReader   *file.Reader
	recordReader pqarrow.RecordReader
	currentBatch arrow.Record
	currentRow   int
	schema       *models.Schema
	mu           sync.Mutex
}

func newParquetReader(r io.Reader, config *ReaderConfig) (*parquetReader, error) {
	// Parquet needs a seekable reader, so buffer the whole file.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Parquet data: %w", err)
	}

	fr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet reader: %w", err)
	}

	pool := memory.NewGoAllocator()
	arrowReader, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	arrowSchema, err := arrowReader.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to get Arrow schema: %w", err)
	}

	rr, err := arrowReader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create record reader: %w", err)
	}

	return &parquetReader{
		config:       config,
		fileReader:   fr,
		recordReader: rr,
		schema:       fromArrowSchema("parquet_schema", arrowSchema),
	}, nil
}

func (pr *parquetReader) ReadRecords() ([]*models.Record, error) {
	var records []*models.Record

	for {
		record, err := pr.Next()
		if err != nil {
			return nil, err
		}
		if record == nil {
			break
		}
		records = append(records, record)
	}

	return records, nil
}

func (pr *parquetReader) Next() (*models.Record, error) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.currentBatch == nil || pr.currentRow >= int(pr.currentBatch.NumRows()) {
		if err := pr.loadNextBatch(); err != nil {
			return nil, err
		}
		if pr.currentBatch == nil {
			return nil, nil // EOF
		}
	}

	record := pr.rowToRecord(pr.currentRow)
	pr.currentRow++

	return record, nil
}

func (pr *parquetReader) Close() error {
	if pr.currentBatch != nil {
		pr.currentBatch.Release()
		pr.currentBatch = nil
	}
	pr.recordReader.Release()
	return pr.fileReader.Close()
}

func (pr *parquetReader) Format() Format {
	return Parquet
}

func (pr *parquetReader) Schema() (*models.Schema, error) {
	return pr.schema, nil
}

func (pr *parquetReader) loadNextBatch() error {
	if pr.currentBatch != nil {
		pr.currentBatch.Release()
		pr.currentBatch = nil
	}

	if pr.recordReader.Next() {
		pr.currentBatch = pr.recordReader.Record()
		pr.currentBatch.Retain()
		pr.currentRow = 0
	}

	return nil
}

func (pr *parquetReader) rowToRecord(rowIdx int) *models.Record {
	data := make(map[string]interface{}, int(pr.currentBatch.NumCols()))

	for i := 0; i < int(pr.currentBatch.NumCols()); i++ {
		col := pr.currentBatch.Column(i)
		field := pr.currentBatch.Schema().Field(i)
		data[field.Name] = columnValue(col, rowIdx)
	}

	return &models.Record{
		Data: data,
		Metadata: models.RecordMetadata{
			Source:    "parquet",
			Timestamp: time.Now(),
		},
	}
}

func parquetCompression(compression string) compress.Compression {
	switch compression {
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}
