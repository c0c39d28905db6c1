package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mitodl/edupipe/pkg/logger"
	"github.com/mitodl/edupipe/pkg/warehouse"
)

// ListEligibleDatasets lists warehouse datasets whose ID carries the
// given suffix. The suffix convention marks the current dataset for each
// course run; intermediate or historical datasets are left out.
func ListEligibleDatasets(ctx context.Context, wh warehouse.Warehouse, suffix string) ([]warehouse.DatasetDescriptor, error) {
	all, err := wh.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]warehouse.DatasetDescriptor, 0, len(all))
	for _, ds := range all {
		if strings.HasSuffix(ds.DatasetID, suffix) {
			eligible = append(eligible, ds)
		}
	}

	logger.Get().Named("extract").Debug("selected datasets",
		zap.String("suffix", suffix),
		zap.Int("total", len(all)),
		zap.Int("eligible", len(eligible)))

	return eligible, nil
}
