// Package metrics provides Prometheus instrumentation for the pipeline.
// Metrics cover both subsystems: the paginated course fetch and the
// per-dataset extraction loop. All collectors are registered at init
// via promauto and are safe for concurrent use, though the pipeline
// itself records from a single goroutine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts course catalog pages consumed from the edX API.
	// Labels: status (success/failure)
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edupipe_catalog_pages_fetched_total",
			Help: "Total number of course catalog pages fetched",
		},
		[]string{"status"},
	)

	// CatalogRecords counts course records consumed from the edX API.
	CatalogRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edupipe_catalog_records_total",
			Help: "Total number of course catalog records fetched",
		},
	)

	// DatasetsScanned counts datasets examined by the extraction loop.
	// Labels: outcome (extracted/skipped_stale/skipped_missing)
	DatasetsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edupipe_datasets_scanned_total",
			Help: "Total number of warehouse datasets examined",
		},
		[]string{"outcome"},
	)

	// FilesWritten counts columnar files materialized to the output root.
	// Labels: format (parquet/arrow)
	FilesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edupipe_files_written_total",
			Help: "Total number of columnar files written",
		},
		[]string{"format"},
	)

	// RowsWritten counts rows written across all materialized files.
	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edupipe_rows_written_total",
			Help: "Total number of rows written to columnar files",
		},
	)

	// ExtractDuration tracks the wall-clock duration of per-dataset
	// extraction in seconds.
	ExtractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edupipe_dataset_extract_duration_seconds",
			Help:    "Duration of a single dataset extraction",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

// Outcome labels for DatasetsScanned.
const (
	OutcomeExtracted      = "extracted"
	OutcomeSkippedStale   = "skipped_stale"
	OutcomeSkippedMissing = "skipped_missing"
)
