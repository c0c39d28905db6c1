// Package config provides the configuration system for the pipeline.
// A single Config structure describes both subsystems: the course
// catalog fetch (edX API) and the user-data extraction (warehouse to
// columnar files). Configuration is loaded from YAML with ${ENV_VAR}
// substitution so credentials can stay out of checked-in files.
package config

import (
	"fmt"
	"strings"
)

// Config is the top-level pipeline configuration.
type Config struct {
	// Edx configures the Open edX API client.
	Edx EdxConfig `yaml:"edx" json:"edx"`

	// Warehouse configures the BigQuery warehouse connection.
	Warehouse WarehouseConfig `yaml:"warehouse" json:"warehouse"`

	// Extract configures the user-data extraction run.
	Extract ExtractConfig `yaml:"extract" json:"extract"`

	// Catalog configures the course catalog ingestion run.
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// EdxConfig holds credentials and endpoints for an Open edX instance.
type EdxConfig struct {
	// BaseURL is the LMS base URL including protocol,
	// e.g. https://lms.mitx.mit.edu
	BaseURL string `yaml:"base_url" json:"base_url"`

	// ClientID is the OAuth2 client ID.
	ClientID string `yaml:"client_id" json:"client_id"`

	// ClientSecret is the OAuth2 client secret.
	ClientSecret string `yaml:"client_secret" json:"client_secret"`

	// TokenType selects a JWT or Bearer token. Defaults to "jwt".
	TokenType string `yaml:"token_type" json:"token_type"`
}

// WarehouseConfig holds the BigQuery connection settings.
type WarehouseConfig struct {
	// Project is the GCP project containing the course-run datasets.
	Project string `yaml:"project" json:"project"`

	// CredentialsFile is an optional service-account key path.
	// Application default credentials are used when empty.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
}

// ExtractConfig controls which tables are extracted and where files land.
type ExtractConfig struct {
	// LastModifiedDays is the staleness window in days: tables whose
	// modified timestamp is older than now minus this many days are
	// skipped. The default of 3600 days effectively extracts everything.
	LastModifiedDays int `yaml:"last_modified_days" json:"last_modified_days"`

	// OutputsDir is the output root for extracted files. May be a local
	// path, a gs:// URI, or an s3:// URI. Required.
	OutputsDir string `yaml:"outputs_dir" json:"outputs_dir"`

	// DatasetSuffix marks datasets holding a current course-run snapshot.
	// Defaults to "_latest".
	DatasetSuffix string `yaml:"dataset_suffix" json:"dataset_suffix"`

	// TableName is the per-dataset user data table. Defaults to
	// "user_info_combo".
	TableName string `yaml:"table_name" json:"table_name"`

	// FileFormat selects the columnar output format: parquet or arrow.
	// Defaults to parquet.
	FileFormat string `yaml:"file_format" json:"file_format"`
}

// CatalogConfig controls the course catalog ingestion run.
type CatalogConfig struct {
	// OutputFile is the JSONL file written under OutputsDir.
	// Defaults to "courses.jsonl".
	OutputFile string `yaml:"output_file" json:"output_file"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// DefaultLastModifiedDays is the staleness window applied when none is
// configured. Deliberately large so a fresh deployment extracts every
// table on its first run.
const DefaultLastModifiedDays = 3600

// New returns a Config populated with defaults. Loaders overlay the
// file's values on top of this.
func New() *Config {
	return &Config{
		Edx: EdxConfig{
			TokenType: "jwt",
		},
		Extract: ExtractConfig{
			LastModifiedDays: DefaultLastModifiedDays,
			DatasetSuffix:    "_latest",
			TableName:        "user_info_combo",
			FileFormat:       "parquet",
		},
		Catalog: CatalogConfig{
			OutputFile: "courses.jsonl",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks the configuration for correctness. It verifies
// required fields and value ranges; call it after loading to catch
// errors before any network work starts.
func (c *Config) Validate() error {
	if c.Extract.OutputsDir == "" {
		return fmt.Errorf("extract.outputs_dir is required")
	}
	if c.Extract.LastModifiedDays <= 0 {
		return fmt.Errorf("extract.last_modified_days must be positive")
	}
	if c.Extract.DatasetSuffix == "" {
		return fmt.Errorf("extract.dataset_suffix is required")
	}
	if c.Extract.TableName == "" {
		return fmt.Errorf("extract.table_name is required")
	}
	switch strings.ToLower(c.Extract.FileFormat) {
	case "parquet", "arrow":
	default:
		return fmt.Errorf("extract.file_format must be parquet or arrow, got %q", c.Extract.FileFormat)
	}
	return nil
}

// ValidateEdx checks the fields the catalog path needs. Kept separate
// from Validate so an extraction-only deployment can leave the edX
// section empty.
func (c *Config) ValidateEdx() error {
	if c.Edx.BaseURL == "" {
		return fmt.Errorf("edx.base_url is required")
	}
	if c.Edx.ClientID == "" {
		return fmt.Errorf("edx.client_id is required")
	}
	if c.Edx.ClientSecret == "" {
		return fmt.Errorf("edx.client_secret is required")
	}
	return nil
}

// ValidateWarehouse checks the fields the extraction path needs.
func (c *Config) ValidateWarehouse() error {
	if c.Warehouse.Project == "" {
		return fmt.Errorf("warehouse.project is required")
	}
	return nil
}
