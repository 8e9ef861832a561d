package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested asset does not exist.
var ErrNotFound = errors.New("asset: not found")

// Repository provides access to the asset registry.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateParams contains write parameters for registering assets.
type CreateParams struct {
	OwnerID        string
	Name           string
	Category       string
	EstimatedValue float64
	Description    *string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Asset, error) {
	const insertSQL = `
		INSERT INTO assets (owner_id, name, category, estimated_value, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_id, name, category, estimated_value, description, created_at, updated_at
	`

	var a Asset
	err := r.pool.QueryRow(ctx, insertSQL,
		params.OwnerID, params.Name, params.Category, params.EstimatedValue, params.Description,
	).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Category, &a.EstimatedValue, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Asset{}, fmt.Errorf("asset: create: %w", err)
	}
	return a, nil
}

// GetByID fetches an asset by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Asset, error) {
	const query = `
		SELECT id, owner_id, name, category, estimated_value, description, created_at, updated_at
		FROM assets
		WHERE id = $1
	`

	var a Asset
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.OwnerID, &a.Name, &a.Category, &a.EstimatedValue, &a.Description, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrNotFound
		}
		return Asset{}, fmt.Errorf("asset: query by id: %w", err)
	}
	return a, nil
}

// ListByOwner returns the assets registered by a user.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Asset, error) {
	const query = `
		SELECT id, owner_id, name, category, estimated_value, description, created_at, updated_at
		FROM assets
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("asset: list by owner: %w", err)
	}
	defer rows.Close()

	assets := []Asset{}
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Category, &a.EstimatedValue, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
