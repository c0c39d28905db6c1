package warehouse

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mitodl/edupipe/pkg/config"
	"github.com/mitodl/edupipe/pkg/errors"
	"github.com/mitodl/edupipe/pkg/logger"
	"github.com/mitodl/edupipe/pkg/models"
)

// BigQueryWarehouse implements Warehouse against BigQuery.
type BigQueryWarehouse struct {
	client  *bigquery.Client
	project string
	logger  *zap.Logger
}

// NewBigQueryWarehouse creates a BigQuery-backed warehouse. When
// cfg.CredentialsFile is empty, application default credentials are used.
func NewBigQueryWarehouse(ctx context.Context, cfg config.WarehouseConfig) (*BigQueryWarehouse, error) {
	if cfg.Project == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "warehouse project is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create BigQuery client")
	}

	return &BigQueryWarehouse{
		client:  client,
		project: cfg.Project,
		logger:  logger.Get().Named("warehouse"),
	}, nil
}

// ListDatasets enumerates all datasets in the configured project.
func (w *BigQueryWarehouse) ListDatasets(ctx context.Context) ([]DatasetDescriptor, error) {
	var datasets []DatasetDescriptor

	it := w.client.Datasets(ctx)
	for {
		ds, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list datasets").
				WithDetail("project", w.project)
		}
		datasets = append(datasets, DatasetDescriptor{
			ProjectID: ds.ProjectID,
			DatasetID: ds.DatasetID,
		})
	}

	w.logger.Debug("listed datasets",
		zap.String("project", w.project),
		zap.Int("count", len(datasets)))

	return datasets, nil
}

// GetTable fetches table metadata. A 404 from the API is reported as
// found=false with a nil error.
func (w *BigQueryWarehouse) GetTable(ctx context.Context, datasetID, tableName string) (*TableMetadata, bool, error) {
	md, err := w.client.Dataset(datasetID).Table(tableName).Metadata(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, errors.ErrorTypeConnection, "failed to fetch table metadata").
			WithDetail("dataset", datasetID).
			WithDetail("table", tableName)
	}

	return &TableMetadata{
		Name:      tableName,
		DatasetID: datasetID,
		FullID:    fmt.Sprintf("%s.%s.%s", w.project, datasetID, tableName),
		Modified:  md.LastModifiedTime,
		Schema:    convertSchema(tableName, md.Schema),
		NumRows:   md.NumRows,
	}, true, nil
}

// ReadRows reads the table restricted to the projection's fields, via a
// generated SELECT. Column order follows the projection.
func (w *BigQueryWarehouse) ReadRows(ctx context.Context, table *TableMetadata, projection *models.Schema) (RowIterator, error) {
	if len(projection.Fields) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "projection has no fields").
			WithDetail("table", table.FullID)
	}

	cols := make([]string, len(projection.Fields))
	for i, f := range projection.Fields {
		cols[i] = fmt.Sprintf("`%s`", f.Name)
	}
	sql := fmt.Sprintf("SELECT %s FROM `%s`", strings.Join(cols, ", "), table.FullID)

	q := w.client.Query(sql)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFetch, "failed to query table").
			WithDetail("table", table.FullID)
	}

	w.logger.Debug("reading table rows",
		zap.String("table", table.FullID),
		zap.Int("columns", len(cols)))

	return &bqRowIterator{it: it}, nil
}

// Close releases the BigQuery client.
func (w *BigQueryWarehouse) Close() error {
	return w.client.Close()
}

type bqRowIterator struct {
	it   *bigquery.RowIterator
	done bool
}

func (r *bqRowIterator) Next() (map[string]interface{}, error) {
	if r.done {
		return nil, nil
	}

	var row map[string]bigquery.Value
	err := r.it.Next(&row)
	if err == iterator.Done {
		r.done = true
		return nil, nil
	}
	if err != nil {
		r.done = true
		return nil, errors.Wrap(err, errors.ErrorTypeFetch, "failed to read row")
	}

	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return false
}

func convertSchema(name string, schema bigquery.Schema) *models.Schema {
	fields := make([]models.Field, 0, len(schema))
	for _, f := range schema {
		fields = append(fields, models.Field{
			Name:     f.Name,
			Type:     convertFieldType(f.Type),
			Nullable: !f.Required,
		})
	}
	return &models.Schema{Name: name, Fields: fields}
}

func convertFieldType(t bigquery.FieldType) models.FieldType {
	switch t {
	case bigquery.IntegerFieldType:
		return models.FieldTypeInt
	case bigquery.FloatFieldType, bigquery.NumericFieldType, bigquery.BigNumericFieldType:
		return models.FieldTypeFloat
	case bigquery.BooleanFieldType:
		return models.FieldTypeBool
	case bigquery.TimestampFieldType, bigquery.DateTimeFieldType:
		return models.FieldTypeTimestamp
	case bigquery.DateFieldType:
		return models.FieldTypeDate
	case bigquery.JSONFieldType, bigquery.RecordFieldType:
		return models.FieldTypeJSON
	case bigquery.BytesFieldType:
		return models.FieldTypeBinary
	default:
		return models.FieldTypeString
	}
}
