// Package warehouse provides read access to the columnar data warehouse
// holding per-course-run datasets. The interface is the capability
// surface the extraction loop depends on; the BigQuery implementation
// lives alongside it.
package warehouse

import (
	"context"
	"time"

	"github.com/mitodl/edupipe/pkg/models"
)

// DatasetDescriptor identifies one warehouse dataset.
type DatasetDescriptor struct {
	// ProjectID is the parent project.
	ProjectID string

	// DatasetID is the dataset identifier within the project.
	DatasetID string
}

// TableMetadata describes a warehouse table: enough to decide staleness
// and to project the desired columns. Row data is read separately.
type TableMetadata struct {
	// Name is the bare table name.
	Name string

	// DatasetID is the parent dataset.
	DatasetID string

	// FullID is the fully qualified project.dataset.table identifier.
	FullID string

	// Modified is the table's last-modified timestamp.
	Modified time.Time

	// Schema is the table's column schema.
	Schema *models.Schema

	// NumRows is the table's row count at metadata-read time.
	NumRows uint64
}

// RowIterator walks the rows of one table read. Next returns (nil, nil)
// once all rows have been yielded.
type RowIterator interface {
	Next() (map[string]interface{}, error)
}

// Warehouse is the read capability the extraction loop needs.
//
// GetTable returns found=false when the table does not exist; a missing
// table is an ordinary outcome for the caller, not an error. All other
// failures are returned as errors and are fatal to the run.
type Warehouse interface {
	// ListDatasets enumerates the datasets visible to the configured
	// project, in whatever order the warehouse returns them.
	ListDatasets(ctx context.Context) ([]DatasetDescriptor, error)

	// GetTable looks up table metadata within a dataset.
	GetTable(ctx context.Context, datasetID, tableName string) (*TableMetadata, bool, error)

	// ReadRows reads all rows of the table restricted to the projected
	// schema's fields.
	ReadRows(ctx context.Context, table *TableMetadata, projection *models.Schema) (RowIterator, error)

	// Close releases the underlying client.
	Close() error
}
