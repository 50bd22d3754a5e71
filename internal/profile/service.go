// Package profile prefills the checkout address form from the signed-in user's profile.
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Prefill(ctx context.Context, userID string) address.Address
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Prefill never fails: a missing or unreadable profile yields an empty address.
func (s *service) Prefill(ctx context.Context, userID string) address.Address {
	if userID == "" {
		return address.Address{}
	}

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			logger.FromCtx(ctx).Warn("profile prefill skipped",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		return address.Address{}
	}

	first, last := SplitName(p.Name())
	return address.Address{FirstName: first, LastName: last}
}

// SplitName puts the first word in first and the rest in last.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
