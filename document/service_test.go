package document

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeCatalog struct {
	docs      map[string]Document
	nextID    int
	createErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{docs: make(map[string]Document)}
}

func (f *fakeCatalog) Create(ctx context.Context, params CreateParams) (Document, error) {
	if f.createErr != nil {
		return Document{}, f.createErr
	}
	f.nextID++
	d := Document{
		ID:          fmt.Sprintf("doc-%d", f.nextID),
		AgreementID: params.AgreementID,
		UploaderID:  params.UploaderID,
		FileName:    params.FileName,
		ContentType: params.ContentType,
		SizeBytes:   params.SizeBytes,
		StorageKey:  params.StorageKey,
		CreatedAt:   time.Now().UTC(),
	}
	f.docs[d.ID] = d
	return d, nil
}

func (f *fakeCatalog) GetByID(ctx context.Context, id string) (Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (f *fakeCatalog) ListByAgreement(ctx context.Context, agreementID string) ([]Document, error) {
	var out []Document
	for _, d := range f.docs {
		if d.AgreementID == agreementID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

func TestUpload(t *testing.T) {
	catalog := newFakeCatalog()
	store := NewMockStore()
	svc := NewService(catalog, store)

	doc, err := svc.Upload(context.Background(), "user-1", UploadParams{
		AgreementID: "agr-1",
		FileName:    "deed.pdf",
		ContentType: "application/pdf",
		Body:        []byte("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.SizeBytes != int64(len("pdf bytes")) {
		t.Fatalf("expected size recorded, got %d", doc.SizeBytes)
	}
	if !store.Has(doc.StorageKey) {
		t.Fatal("expected object stored under the document's key")
	}
	if doc.UploaderID != "user-1" {
		t.Fatalf("expected uploader recorded, got %s", doc.UploaderID)
	}
}

func TestUpload_Validation(t *testing.T) {
	svc := NewService(newFakeCatalog(), NewMockStore())

	if _, err := svc.Upload(context.Background(), "user-1", UploadParams{AgreementID: "agr-1", Body: []byte("x")}); err == nil {
		t.Fatal("expected missing file name to fail")
	}
	if _, err := svc.Upload(context.Background(), "user-1", UploadParams{AgreementID: "agr-1", FileName: "a.txt"}); err == nil {
		t.Fatal("expected empty body to fail")
	}
}

func TestUpload_StorageFailureBlocksMetadata(t *testing.T) {
	catalog := newFakeCatalog()
	store := NewMockStore()
	store.SetError(errors.New("gateway unavailable"))
	svc := NewService(catalog, store)

	_, err := svc.Upload(context.Background(), "user-1", UploadParams{
		AgreementID: "agr-1",
		FileName:    "deed.pdf",
		Body:        []byte("pdf bytes"),
	})
	if err == nil {
		t.Fatal("expected upload to fail when storage fails")
	}
	if len(catalog.docs) != 0 {
		t.Fatal("metadata must not be written when the object store fails")
	}
}

func TestUpload_InsertFailureCleansUpObject(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.createErr = errors.New("insert failed")
	store := NewMockStore()
	svc := NewService(catalog, store)

	_, err := svc.Upload(context.Background(), "user-1", UploadParams{
		AgreementID: "agr-1",
		FileName:    "deed.pdf",
		Body:        []byte("pdf bytes"),
	})
	if err == nil {
		t.Fatal("expected upload to fail when the insert fails")
	}
	if store.DeleteCalls != 1 {
		t.Fatalf("expected one cleanup delete, got %d", store.DeleteCalls)
	}
}

func TestRemove_BestEffortStorageDelete(t *testing.T) {
	catalog := newFakeCatalog()
	store := NewMockStore()
	svc := NewService(catalog, store)

	doc, err := svc.Upload(context.Background(), "user-1", UploadParams{
		AgreementID: "agr-1",
		FileName:    "deed.pdf",
		Body:        []byte("pdf bytes"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// A storage failure must not fail the removal.
	store.SetError(errors.New("gateway unavailable"))
	if err := svc.Remove(context.Background(), doc.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.Get(context.Background(), doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected metadata gone, got %v", err)
	}
}

func TestRemove_UnknownDocument(t *testing.T) {
	svc := NewService(newFakeCatalog(), NewMockStore())
	if err := svc.Remove(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
