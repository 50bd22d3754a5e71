package product

import (
	"context"
	"fmt"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"

	"go.uber.org/zap"
)

type Repository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
}

type repository struct {
	store recordstore.Store
}

func NewRepository(store recordstore.Store) Repository {
	return &repository{store: store}
}

// GetProducts returns the products found, keyed by id. Unknown ids are simply absent.
func (r *repository) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.store.Select(ctx, Table, recordstore.In("id", args...))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to select products",
			zap.String("layer", "repository"),
			zap.String("method", "GetProducts"),
			zap.Int("count", len(ids)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("select products: %w", err)
	}

	for _, row := range rows {
		p := Product{
			ID:                  row.String("id"),
			Name:                row.String("name"),
			DropshippingEnabled: row.Bool("dropshipping_enabled"),
			ProviderURL:         row.StringPtr("dropshipping_provider_url"),
		}
		out[p.ID] = p
	}
	return out, nil
}
