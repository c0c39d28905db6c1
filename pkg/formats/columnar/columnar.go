// Package columnar provides columnar file format support for extraction
// outputs.
package columnar

import (
	"fmt"
	"io"

	"github.com/mitodl/edupipe/pkg/models"
)

// Format represents a columnar storage format
type Format string

const (
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Arrow is Apache Arrow IPC file format
	Arrow Format = "arrow"
)

// ParseFormat maps a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case Parquet:
		return Parquet, nil
	case Arrow:
		return Arrow, nil
	default:
		return "", fmt.Errorf("unsupported columnar format: %s", s)
	}
}

// Extension returns the file extension for a format, including the dot.
func Extension(format Format) string {
	switch format {
	case Arrow:
		return ".arrow"
	default:
		return ".parquet"
	}
}

// Writer provides columnar format writing capabilities
type Writer interface {
	// WriteRecords writes records in columnar format
	WriteRecords(records []*models.Record) error
	// WriteRecord writes a single record
	WriteRecord(record *models.Record) error
	// Flush flushes any buffered data
	Flush() error
	// Close closes the writer
	Close() error
	// Format returns the columnar format
	Format() Format
	// RecordsWritten returns records written
	RecordsWritten() int64
}

// Reader provides columnar format reading capabilities
type Reader interface {
	// ReadRecords reads all remaining records
	ReadRecords() ([]*models.Record, error)
	// Next reads the next record, returning (nil, nil) at end of file
	Next() (*models.Record, error)
	// Close closes the reader
	Close() error
	// Format returns the columnar format
	Format() Format
	// Schema returns the schema
	Schema() (*models.Schema, error)
}

// WriterConfig configures columnar writers
type WriterConfig struct {
	Format      Format
	Schema      *models.Schema
	Compression string
	BatchSize   int
	PageSize    int
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:      Parquet,
		Compression: "snappy",
		BatchSize:   10000,
		PageSize:    8192,
	}
}

// ReaderConfig configures columnar readers
type ReaderConfig struct {
	Format Format
}

// NewWriter creates a new columnar writer
func NewWriter(w io.Writer, config *WriterConfig) (Writer, error) {
	if config == nil {
		config = DefaultWriterConfig()
	}

	switch config.Format {
	case Parquet:
		return newParquetWriter(w, config)
	case Arrow:
		return newArrowWriter(w, config)
	default:
		return nil, fmt.Errorf("unsupported columnar format: %s", config.Format)
	}
}

// NewReader creates a new columnar reader
func NewReader(r io.Reader, config *ReaderConfig) (Reader, error) {
	if config == nil {
		config = &ReaderConfig{Format: Parquet}
	}

	switch config.Format {
	case Parquet:
		return newParquetReader(r, config)
	case Arrow:
		return newArrowReader(r, config)
	default:
		return nil, fmt.Errorf("unsupported columnar format: %s", config.Format)
	}
}
