// Package pipeline wires configuration, clients, and the extraction
// loop into the runnable flows the CLI exposes.
package pipeline

import (
	"context"
	"path"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mitodl/edupipe/pkg/clients"
	"github.com/mitodl/edupipe/pkg/config"
	"github.com/mitodl/edupipe/pkg/edx"
	"github.com/mitodl/edupipe/pkg/errors"
	"github.com/mitodl/edupipe/pkg/extract"
	"github.com/mitodl/edupipe/pkg/logger"
	"github.com/mitodl/edupipe/pkg/storage"
	"github.com/mitodl/edupipe/pkg/warehouse"
)

// CatalogPipeline fetches the course catalog into a JSON Lines file.
type CatalogPipeline struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCatalogPipeline creates a catalog pipeline from configuration.
func NewCatalogPipeline(cfg *config.Config) *CatalogPipeline {
	return &CatalogPipeline{
		cfg:    cfg,
		logger: logger.Get().Named("catalog"),
	}
}

// Run acquires an access token, walks every catalog page, and writes
// one JSON line per course under the configured outputs destination.
// It returns the written file's path.
func (p *CatalogPipeline) Run(ctx context.Context) (string, error) {
	if err := p.cfg.ValidateEdx(); err != nil {
		return "", err
	}

	httpClient := clients.NewHTTPClient(clients.DefaultHTTPConfig(), p.logger)
	defer func() { _ = httpClient.Close() }()

	token, err := edx.AcquireToken(ctx, edx.TokenConfig{
		BaseURL:      p.cfg.Edx.BaseURL,
		ClientID:     p.cfg.Edx.ClientID,
		ClientSecret: p.cfg.Edx.ClientSecret,
		TokenType:    p.cfg.Edx.TokenType,
	}, httpClient.StdClient())
	if err != nil {
		return "", err
	}

	client := edx.NewClient(p.cfg.Edx.BaseURL, token, httpClient, p.logger)

	pages, err := client.Courses(ctx)
	if err != nil {
		return "", err
	}

	fs, root, err := storage.ResolveURI(ctx, p.cfg.Extract.OutputsDir)
	if err != nil {
		return "", err
	}
	defer fs.Close()

	outPath := path.Join(root, p.cfg.Catalog.OutputFile)
	out, err := fs.OpenWriter(ctx, outPath)
	if err != nil {
		return "", err
	}

	var count int64
	for {
		page, err := pages.Next(ctx)
		if err != nil {
			out.Close()
			return "", err
		}
		if page == nil {
			break
		}

		for _, course := range page {
			line, err := gojson.Marshal(course)
			if err != nil {
				out.Close()
				return "", errors.Wrap(err, errors.ErrorTypeData, "failed to encode course")
			}
			if _, err := out.Write(append(line, '\n')); err != nil {
				out.Close()
				return "", errors.Wrap(err, errors.ErrorTypeStorage, "failed to write catalog file").
					WithDetail("path", outPath)
			}
			count++
		}
	}

	if err := out.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeStorage, "failed to commit catalog file").
			WithDetail("path", outPath)
	}

	p.logger.Info("catalog fetched",
		zap.String("path", outPath),
		zap.Int64("courses", count))

	return outPath, nil
}

// UserDataPipeline extracts the user-data table from every eligible
// warehouse dataset.
type UserDataPipeline struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewUserDataPipeline creates a user-data pipeline from configuration.
func NewUserDataPipeline(cfg *config.Config) *UserDataPipeline {
	return &UserDataPipeline{
		cfg:    cfg,
		logger: logger.Get().Named("userdata"),
	}
}

// ListDatasets enumerates the datasets the extraction run would visit.
func (p *UserDataPipeline) ListDatasets(ctx context.Context) ([]warehouse.DatasetDescriptor, error) {
	if err := p.cfg.ValidateWarehouse(); err != nil {
		return nil, err
	}

	wh, err := warehouse.NewBigQueryWarehouse(ctx, p.cfg.Warehouse)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wh.Close() }()

	return extract.ListEligibleDatasets(ctx, wh, p.cfg.Extract.DatasetSuffix)
}

// Run performs the extraction and returns the materializations recorded
// for each written file, plus the destination root they live under.
func (p *UserDataPipeline) Run(ctx context.Context) ([]extract.Materialization, string, error) {
	if err := p.cfg.ValidateWarehouse(); err != nil {
		return nil, "", err
	}

	wh, err := warehouse.NewBigQueryWarehouse(ctx, p.cfg.Warehouse)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = wh.Close() }()

	datasets, err := extract.ListEligibleDatasets(ctx, wh, p.cfg.Extract.DatasetSuffix)
	if err != nil {
		return nil, "", err
	}

	var materializations []extract.Materialization
	ex := extract.New(wh, extract.Options{
		LastModifiedDays: p.cfg.Extract.LastModifiedDays,
		TableName:        p.cfg.Extract.TableName,
		FileFormat:       p.cfg.Extract.FileFormat,
		OutputsDir:       p.cfg.Extract.OutputsDir,
		OnMaterialize: func(m extract.Materialization) {
			materializations = append(materializations, m)
			p.logger.Info("materialized",
				zap.String("dataset", m.DatasetID),
				zap.String("path", m.Path),
				zap.Int64("rows", m.Rows))
		},
	})

	root, err := ex.Run(ctx, datasets)
	if err != nil {
		return nil, "", err
	}

	return materializations, root, nil
}
