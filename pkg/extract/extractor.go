// Package extract implements the incremental user-data extraction loop:
// scan eligible warehouse datasets, skip tables that are missing or
// whose last modification falls outside the freshness window, and write
// one columnar file per extracted table.
package extract

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/mitodl/edupipe/pkg/config"
	"github.com/mitodl/edupipe/pkg/errors"
	"github.com/mitodl/edupipe/pkg/formats/columnar"
	"github.com/mitodl/edupipe/pkg/logger"
	"github.com/mitodl/edupipe/pkg/metrics"
	"github.com/mitodl/edupipe/pkg/models"
	"github.com/mitodl/edupipe/pkg/storage"
	"github.com/mitodl/edupipe/pkg/warehouse"
)

// DefaultFields is the projection extracted from each user-data table.
var DefaultFields = []string{
	"user_id",
	"username",
	"email",
	"is_staff",
	"profile_name",
	"profile_meta",
	"enrollment_course_id",
}

// Materialization records one file produced by a run.
type Materialization struct {
	// DatasetID is the dataset the file was extracted from.
	DatasetID string

	// Path is the file's full path within the destination.
	Path string

	// Rows is the number of rows written.
	Rows int64
}

// Options configures an Extractor. Zero values take the documented
// defaults.
type Options struct {
	// LastModifiedDays bounds the freshness window: only tables
	// modified within this many days of the run are extracted.
	// Defaults to config.DefaultLastModifiedDays.
	LastModifiedDays int

	// TableName is the table extracted from each dataset.
	TableName string

	// Fields is the column projection. Defaults to DefaultFields.
	Fields []string

	// FileFormat selects the output format, parquet or arrow.
	FileFormat string

	// OutputsDir is the destination URI files are written under.
	OutputsDir string

	// OnMaterialize, when set, is called once per written file.
	OnMaterialize func(Materialization)
}

// Extractor runs the extraction loop against a warehouse.
type Extractor struct {
	wh     warehouse.Warehouse
	opts   Options
	logger *zap.Logger
}

// New creates an Extractor, filling unset options with defaults.
func New(wh warehouse.Warehouse, opts Options) *Extractor {
	if opts.LastModifiedDays <= 0 {
		opts.LastModifiedDays = config.DefaultLastModifiedDays
	}
	if opts.TableName == "" {
		opts.TableName = "user_info_combo"
	}
	if len(opts.Fields) == 0 {
		opts.Fields = DefaultFields
	}
	if opts.FileFormat == "" {
		opts.FileFormat = string(columnar.Parquet)
	}

	return &Extractor{
		wh:     wh,
		opts:   opts,
		logger: logger.Get().Named("extract"),
	}
}

// Run extracts the configured table from each dataset in turn and
// returns the destination root files were written under. Missing tables
// and tables outside the freshness window are skipped; any other
// failure aborts the run so a partial output is never mistaken for a
// complete one.
func (e *Extractor) Run(ctx context.Context, datasets []warehouse.DatasetDescriptor) (string, error) {
	format, err := columnar.ParseFormat(e.opts.FileFormat)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid file format")
	}

	fs, root, err := storage.ResolveURI(ctx, e.opts.OutputsDir)
	if err != nil {
		return "", err
	}
	defer fs.Close()

	cutoff := time.Now().AddDate(0, 0, -e.opts.LastModifiedDays)

	for _, ds := range datasets {
		if err := e.extractDataset(ctx, fs, root, format, cutoff, ds); err != nil {
			return "", err
		}
	}

	return root, nil
}

func (e *Extractor) extractDataset(ctx context.Context, fs storage.FileSystem, root string, format columnar.Format, cutoff time.Time, ds warehouse.DatasetDescriptor) error {
	log := e.logger.With(zap.String("dataset", ds.DatasetID))

	table, found, err := e.wh.GetTable(ctx, ds.DatasetID, e.opts.TableName)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("table not present in dataset, skipping",
			zap.String("table", e.opts.TableName))
		metrics.DatasetsScanned.WithLabelValues(metrics.OutcomeSkippedMissing).Inc()
		return nil
	}

	if !table.Modified.After(cutoff) {
		log.Debug("table outside freshness window, skipping",
			zap.Time("modified", table.Modified),
			zap.Time("cutoff", cutoff))
		metrics.DatasetsScanned.WithLabelValues(metrics.OutcomeSkippedStale).Inc()
		return nil
	}

	projection := table.Schema.Project(e.opts.Fields)
	if len(projection.Fields) == 0 {
		return errors.New(errors.ErrorTypeValidation, "no projected fields present in table").
			WithDetail("table", table.FullID)
	}

	rows, err := e.wh.ReadRows(ctx, table, projection)
	if err != nil {
		return err
	}

	start := time.Now()

	filePath := path.Join(root, fmt.Sprintf("%s_%s%s", e.opts.TableName, ds.DatasetID, columnar.Extension(format)))

	written, err := e.writeFile(ctx, fs, filePath, format, projection, ds.DatasetID, rows)
	if err != nil {
		return err
	}

	log.Info("extracted dataset",
		zap.String("path", filePath),
		zap.Int64("rows", written),
		zap.Duration("duration", time.Since(start)))
	metrics.ExtractDuration.Observe(time.Since(start).Seconds())
	metrics.DatasetsScanned.WithLabelValues(metrics.OutcomeExtracted).Inc()
	metrics.FilesWritten.WithLabelValues(string(format)).Inc()
	metrics.RowsWritten.Add(float64(written))

	if e.opts.OnMaterialize != nil {
		e.opts.OnMaterialize(Materialization{
			DatasetID: ds.DatasetID,
			Path:      filePath,
			Rows:      written,
		})
	}

	return nil
}

func (e *Extractor) writeFile(ctx context.Context, fs storage.FileSystem, filePath string, format columnar.Format, schema *models.Schema, datasetID string, rows warehouse.RowIterator) (int64, error) {
	out, err := fs.OpenWriter(ctx, filePath)
	if err != nil {
		return 0, err
	}

	cfg := columnar.DefaultWriterConfig()
	cfg.Format = format
	cfg.Schema = schema

	w, err := columnar.NewWriter(out, cfg)
	if err != nil {
		out.Close()
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create columnar writer").
			WithDetail("path", filePath)
	}

	for {
		row, err := rows.Next()
		if err != nil {
			w.Close()
			out.Close()
			return 0, err
		}
		if row == nil {
			break
		}
		if err := w.WriteRecord(models.NewRecord(datasetID, row)); err != nil {
			w.Close()
			out.Close()
			return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to write record").
				WithDetail("path", filePath)
		}
	}

	if err := w.Close(); err != nil {
		out.Close()
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to finalize columnar file").
			WithDetail("path", filePath)
	}
	if err := out.Close(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to commit output file").
			WithDetail("path", filePath)
	}

	return w.RecordsWritten(), nil
}
