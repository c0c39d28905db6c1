package columnar

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/mitodl/edupipe/pkg/models"
)

// arrowWriter implements Writer for the Arrow IPC file format
type arrowWriter struct {
	writer         io.Writer
	config         *WriterConfig
	arrowSchema    *arrow.Schema
	fileWriter     *ipc.FileWriter
	recordBuilder  *array.RecordBuilder
	recordsWritten int64
	currentBatch   int
	mu             sync.Mutex
}

func newArrowWriter(w io.Writer, config *WriterConfig) (*arrowWriter, error) {
	if config.Schema == nil {
		return nil, fmt.Errorf("schema is required for Arrow writer")
	}

	arrowSchema, err := toArrowSchema(config.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to convert schema: %w", err)
	}

	pool := memory.NewGoAllocator()

	aw := &arrowWriter{
		writer:      w,
		config:      config,
		arrowSchema: arrowSchema,
	}

	aw.recordBuilder = array.NewRecordBuilder(pool, arrowSchema)

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(arrowSchema), ipc.WithAllocator(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow writer: %w", err)
	}
	aw.fileWriter = fw

	return aw, nil
}

func (aw *arrowWriter) WriteRecord(record *models.Record) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	for i, field := range aw.arrowSchema.Fields() {
		value := record.Data[field.Name]
		if err := appendValue(aw.recordBuilder.Field(i), value); err != nil {
			return fmt.Errorf("failed to append value for field %s: %w", field.Name, err)
		}
	}

	aw.currentBatch++

	if aw.currentBatch >= aw.config.BatchSize {
		return aw.flushBatch()
	}

	return nil
}

func (aw *arrowWriter) WriteRecords(records []*models.Record) error {
	for _, record := range records {
		if err := aw.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

func (aw *arrowWriter) Flush() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.flushBatch()
}

func (aw *arrowWriter) Close() error {
	if err := aw.Flush(); err != nil {
		return err
	}

	aw.mu.Lock()
	defer aw.mu.Unlock()

	if err := aw.fileWriter.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}

	return nil
}

func (aw *arrowWriter) Format() Format {
	return Arrow
}

func (aw *arrowWriter) RecordsWritten() int64 {
	return aw.recordsWritten
}

func (aw *arrowWriter) flushBatch() error {
	if aw.currentBatch == 0 {
		return nil
	}

	record := aw.recordBuilder.NewRecord()
	defer record.Release()

	if err := aw.fileWriter.Write(record); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	aw.recordsWritten += int64(aw.currentBatch)
	aw.currentBatch = 0

	return nil
}

// arrowReader implements Reader for the Arrow IPC file format
type arrowReader struct {
	config       *ReaderConfig
	fileReader   *ipc.FileReader
	currentBatch arrow.Record
	currentRow   int
	batchIndex   int
	schema       *models.Schema
	mu           sync.Mutex
}

func newArrowReader(r io.Reader, config *ReaderConfig) (*arrowReader, error) {
	// The IPC file format needs a seekable reader, so buffer the file.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Arrow data: %w", err)
	}

	reader, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	return &arrowReader{
		config:     config,
		fileReader: reader,
		batchIndex: -1,
		schema:     fromArrowSchema("arrow_schema", reader.Schema()),
	}, nil
}

func (ar *arrowReader) ReadRecords() ([]*models.Record, error) {
	var records []*models.Record

	for {
		record, err := ar.Next()
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

func (ar *arrowReader) Next() (*models.Record, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.currentBatch == nil || ar.currentRow >= int(ar.currentBatch.NumRows()) {
		if err := ar.loadNextBatch(); err != nil {
			return nil, err
		}
		if ar.currentBatch == nil {
			return nil, nil // EOF
		}
	}

	record := ar.rowToRecord(ar.currentRow)
	ar.currentRow++

	return record, nil
}

func (ar *arrowReader) Close() error {
	if ar.currentBatch != nil {
		ar.currentBatch.Release()
		ar.currentBatch = nil
	}
	return ar.fileReader.Close()
}

func (ar *arrowReader) Format() Format {
	return Arrow
}

func (ar *arrowReader) Schema() (*models.Schema, error) {
	return ar.schema, nil
}

func (ar *arrowReader) loadNextBatch() error {
	if ar.currentBatch != nil {
		ar.currentBatch.Release()
		ar.currentBatch = nil
	}

	ar.batchIndex++
	if ar.batchIndex >= ar.fileReader.NumRecords() {
		return nil // EOF
	}

	batch, err := ar.fileReader.Record(ar.batchIndex)
	if err != nil {
		return fmt.Errorf("failed to read record batch: %w", err)
	}
	batch.Retain()
	ar.currentBatch = batch
	ar.currentRow = 0

	return nil
}

func (ar *arrowReader) rowToRecord(rowIdx int) *models.Record {
	data := make(map[string]interface{}, int(ar.currentBatch.NumCols()))

	for i := 0; i < int(ar.currentBatch.NumCols()); i++ {
		col := ar.currentBatch.Column(i)
		field := ar.currentBatch.Schema().Field(i)
		data[field.Name] = columnValue(col, rowIdx)
	}

	return &models.Record{
		Data: data,
		Metadata: models.RecordMetadata{
			Source:    "arrow",
			Timestamp: time.Now(),
		},
	}
}
