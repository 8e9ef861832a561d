package family

import (
	"context"
	"fmt"
)

// Registry abstracts repository operations for the service.
type Registry interface {
	CreateMember(ctx context.Context, params CreateMemberParams) (Member, error)
	CreateNonRegistered(ctx context.Context, params CreateNonRegisteredParams) (NonRegisteredMember, error)
	GetMember(ctx context.Context, id string) (Member, error)
	GetNonRegistered(ctx context.Context, id string) (NonRegisteredMember, error)
	ListMembers(ctx context.Context, userID string) ([]Member, error)
	ListNonRegistered(ctx context.Context, ownerUserID string) ([]NonRegisteredMember, error)
}

// Service exposes business-level family registry operations.
type Service struct {
	repo Registry
}

// NewService builds a Service using the provided repository.
func NewService(repo Registry) *Service {
	return &Service{repo: repo}
}

// AddMember records a registered family link for the user.
func (s *Service) AddMember(ctx context.Context, userID string, params CreateMemberParams) (Member, error) {
	if params.RelatedUserID == "" {
		return Member{}, fmt.Errorf("family: related user id required")
	}
	if params.RelatedUserID == userID {
		return Member{}, fmt.Errorf("family: cannot link a user to themselves")
	}
	params.UserID = userID
	return s.repo.CreateMember(ctx, params)
}

// AddNonRegistered records an off-platform family member for the user.
func (s *Service) AddNonRegistered(ctx context.Context, userID string, params CreateNonRegisteredParams) (NonRegisteredMember, error) {
	if params.FullName == "" {
		return NonRegisteredMember{}, fmt.Errorf("family: full name required")
	}
	params.OwnerUserID = userID
	return s.repo.CreateNonRegistered(ctx, params)
}

// ListMembers returns the registered family links owned by a user.
func (s *Service) ListMembers(ctx context.Context, userID string) ([]Member, error) {
	return s.repo.ListMembers(ctx, userID)
}

// ListNonRegistered returns the off-platform members recorded by a user.
func (s *Service) ListNonRegistered(ctx context.Context, userID string) ([]NonRegisteredMember, error) {
	return s.repo.ListNonRegistered(ctx, userID)
}
