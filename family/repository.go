package family

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested family member does not exist.
var ErrNotFound = errors.New("family: not found")

// Repository provides access to family member records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateMemberParams contains write parameters for registered family links.
type CreateMemberParams struct {
	UserID        string
	RelatedUserID string
	Relationship  string
}

func (r *Repository) CreateMember(ctx context.Context, params CreateMemberParams) (Member, error) {
	const insertSQL = `
		INSERT INTO family_members (user_id, related_user_id, relationship)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, related_user_id, relationship, created_at
	`

	var m Member
	err := r.pool.QueryRow(ctx, insertSQL, params.UserID, params.RelatedUserID, params.Relationship).Scan(
		&m.ID, &m.UserID, &m.RelatedUserID, &m.Relationship, &m.CreatedAt,
	)
	if err != nil {
		return Member{}, fmt.Errorf("family: create member: %w", err)
	}
	return m, nil
}

// CreateNonRegisteredParams contains write parameters for off-platform members.
type CreateNonRegisteredParams struct {
	OwnerUserID  string
	FullName     string
	Relationship string
	Email        *string
}

func (r *Repository) CreateNonRegistered(ctx context.Context, params CreateNonRegisteredParams) (NonRegisteredMember, error) {
	const insertSQL = `
		INSERT INTO non_registered_members (owner_user_id, full_name, relationship, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, owner_user_id, full_name, relationship, email, created_at
	`

	var m NonRegisteredMember
	err := r.pool.QueryRow(ctx, insertSQL, params.OwnerUserID, params.FullName, params.Relationship, params.Email).Scan(
		&m.ID, &m.OwnerUserID, &m.FullName, &m.Relationship, &m.Email, &m.CreatedAt,
	)
	if err != nil {
		return NonRegisteredMember{}, fmt.Errorf("family: create non-registered member: %w", err)
	}
	return m, nil
}

// GetMember fetches a registered family link by its primary key.
func (r *Repository) GetMember(ctx context.Context, id string) (Member, error) {
	const query = `
		SELECT id, user_id, related_user_id, relationship, created_at
		FROM family_members
		WHERE id = $1
	`

	var m Member
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.UserID, &m.RelatedUserID, &m.Relationship, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrNotFound
		}
		return Member{}, fmt.Errorf("family: get member: %w", err)
	}
	return m, nil
}

// GetNonRegistered fetches a non-registered member by its primary key.
func (r *Repository) GetNonRegistered(ctx context.Context, id string) (NonRegisteredMember, error) {
	const query = `
		SELECT id, owner_user_id, full_name, relationship, email, created_at
		FROM non_registered_members
		WHERE id = $1
	`

	var m NonRegisteredMember
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.OwnerUserID, &m.FullName, &m.Relationship, &m.Email, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NonRegisteredMember{}, ErrNotFound
		}
		return NonRegisteredMember{}, fmt.Errorf("family: get non-registered member: %w", err)
	}
	return m, nil
}

// ListMembers returns the registered family links owned by a user.
func (r *Repository) ListMembers(ctx context.Context, userID string) ([]Member, error) {
	const query = `
		SELECT id, user_id, related_user_id, relationship, created_at
		FROM family_members
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("family: list members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.RelatedUserID, &m.Relationship, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListNonRegistered returns the off-platform members recorded by a user.
func (r *Repository) ListNonRegistered(ctx context.Context, ownerUserID string) ([]NonRegisteredMember, error) {
	const query = `
		SELECT id, owner_user_id, full_name, relationship, email, created_at
		FROM non_registered_members
		WHERE owner_user_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("family: list non-registered members: %w", err)
	}
	defer rows.Close()

	members := []NonRegisteredMember{}
	for rows.Next() {
		var m NonRegisteredMember
		if err := rows.Scan(&m.ID, &m.OwnerUserID, &m.FullName, &m.Relationship, &m.Email, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
