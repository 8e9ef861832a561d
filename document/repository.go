package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested document does not exist.
var ErrNotFound = errors.New("document: not found")

// Repository provides access to document metadata records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateParams contains write parameters for a new document record.
type CreateParams struct {
	AgreementID string
	UploaderID  string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Document, error) {
	const insertSQL = `
		INSERT INTO documents (agreement_id, uploader_id, file_name, content_type, size_bytes, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, agreement_id, uploader_id, file_name, content_type, size_bytes, storage_key, created_at
	`

	var d Document
	err := r.pool.QueryRow(ctx, insertSQL,
		params.AgreementID, params.UploaderID, params.FileName, params.ContentType, params.SizeBytes, params.StorageKey,
	).Scan(&d.ID, &d.AgreementID, &d.UploaderID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageKey, &d.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("document: create: %w", err)
	}
	return d, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
		SELECT id, agreement_id, uploader_id, file_name, content_type, size_bytes, storage_key, created_at
		FROM documents
		WHERE id = $1
	`

	var d Document
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.AgreementID, &d.UploaderID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageKey, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("document: get: %w", err)
	}
	return d, nil
}

func (r *Repository) ListByAgreement(ctx context.Context, agreementID string) ([]Document, error) {
	const query = `
		SELECT id, agreement_id, uploader_id, file_name, content_type, size_bytes, storage_key, created_at
		FROM documents
		WHERE agreement_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, agreementID)
	if err != nil {
		return nil, fmt.Errorf("document: list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.AgreementID, &d.UploaderID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageKey, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("document: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
