package profile

import (
	"context"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"

	"go.uber.org/zap"
)

const table = "profiles"

type Repository interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

type repository struct {
	store recordstore.Store
}

func NewRepository(store recordstore.Store) Repository {
	return &repository{store: store}
}

// GetProfile fetches a user's profile by user ID. Profile ids equal auth user ids.
func (r *repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetProfile"),
		zap.String("user_id", userID),
	)

	rows, err := r.store.Select(ctx, table, recordstore.Eq("id", userID))
	if err != nil {
		log.Error("failed to select profile", zap.Error(err))
		return nil, err
	}
	if len(rows) == 0 {
		log.Info("profile not found")
		return nil, ErrProfileNotFound
	}

	row := rows[0]
	return &Profile{
		ID:          row.String("id"),
		FullName:    row.StringPtr("full_name"),
		DisplayName: row.StringPtr("display_name"),
		Email:       row.StringPtr("email"),
	}, nil
}
