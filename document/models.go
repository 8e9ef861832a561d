package document

import "time"

// Document is a stored file attached to an agreement, typically a signed
// copy, a deed, or a valuation report. The file bytes live in object
// storage; this row carries the metadata and the storage key.
type Document struct {
	ID          string
	AgreementID string
	UploaderID  string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	CreatedAt   time.Time
}
