package asset

import (
	"context"
	"fmt"
)

// Registry abstracts repository operations for the service.
type Registry interface {
	Create(ctx context.Context, params CreateParams) (Asset, error)
	GetByID(ctx context.Context, id string) (Asset, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Asset, error)
}

// Service exposes business-level asset operations.
type Service struct {
	repo Registry
}

// NewService builds a Service using the provided repository.
func NewService(repo Registry) *Service {
	return &Service{repo: repo}
}

// Register adds an asset to the user's registry.
func (s *Service) Register(ctx context.Context, ownerID string, params CreateParams) (Asset, error) {
	if params.Name == "" {
		return Asset{}, fmt.Errorf("asset: name required")
	}
	if params.EstimatedValue < 0 {
		return Asset{}, fmt.Errorf("asset: invalid estimated value")
	}
	params.OwnerID = ownerID
	return s.repo.Create(ctx, params)
}

// GetByID returns the asset for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Asset, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByOwner returns the assets registered by a user.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Asset, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}
