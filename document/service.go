package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// Catalog abstracts repository operations for the service.
type Catalog interface {
	Create(ctx context.Context, params CreateParams) (Document, error)
	GetByID(ctx context.Context, id string) (Document, error)
	ListByAgreement(ctx context.Context, agreementID string) ([]Document, error)
	Delete(ctx context.Context, id string) error
}

// Service handles document upload and removal. Uploads are blocking: a
// storage failure fails the request so the metadata row is never written
// without its backing object. Removal deletes the metadata first and treats
// the storage delete as best-effort, logging failures for later cleanup.
type Service struct {
	repo  Catalog
	store ObjectStore
}

const maxUploadBytes = 25 << 20

func NewService(repo Catalog, store ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// UploadParams describes one incoming file.
type UploadParams struct {
	AgreementID string
	FileName    string
	ContentType string
	Body        []byte
}

// Upload stores the file bytes and records the document metadata.
func (s *Service) Upload(ctx context.Context, uploaderID string, params UploadParams) (Document, error) {
	if strings.TrimSpace(params.FileName) == "" {
		return Document{}, fmt.Errorf("document: file name required")
	}
	if len(params.Body) == 0 {
		return Document{}, fmt.Errorf("document: empty file")
	}
	if len(params.Body) > maxUploadBytes {
		return Document{}, fmt.Errorf("document: file exceeds %d bytes", maxUploadBytes)
	}
	contentType := params.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("agreements/%s/%s", params.AgreementID, uuid.NewString())

	if err := s.store.Put(ctx, key, contentType, params.Body); err != nil {
		return Document{}, fmt.Errorf("document: store file: %w", err)
	}

	doc, err := s.repo.Create(ctx, CreateParams{
		AgreementID: params.AgreementID,
		UploaderID:  uploaderID,
		FileName:    params.FileName,
		ContentType: contentType,
		SizeBytes:   int64(len(params.Body)),
		StorageKey:  key,
	})
	if err != nil {
		// The object is already stored; try to clean it up so a failed
		// insert does not leak storage.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.WithError(delErr).WithField("key", key).Error("failed to clean up orphaned object")
		}
		return Document{}, err
	}
	return doc, nil
}

// Remove deletes the metadata row, then the stored object. The storage
// delete is best-effort: the metadata row is authoritative and a dangling
// object is harmless until swept.
func (s *Service) Remove(ctx context.Context, id string) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
		log.WithError(err).WithField("key", doc.StorageKey).Error("failed to delete stored object")
	}
	return nil
}

// Get returns one document's metadata.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByAgreement returns the documents attached to an agreement.
func (s *Service) ListByAgreement(ctx context.Context, agreementID string) ([]Document, error) {
	return s.repo.ListByAgreement(ctx, agreementID)
}
