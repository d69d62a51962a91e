package docstore

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by GetDocument when no document exists
// for the identity/category pair. A missing document is a normal state
// (first sync for an identity), not a transport failure.
var ErrDocumentNotFound = errors.New("docstore: document not found")

// DocumentStore defines the remote per-identity, per-category document storage.
// Each category holds exactly one JSON blob; writes replace the whole document.
// It is intentionally small so MinIO/S3 implementations can be swapped without
// touching reconciliation logic.
type DocumentStore interface {
	// GetDocument fetches the document body for an identity and category.
	GetDocument(ctx context.Context, identity, category string) ([]byte, error)

	// PutDocument replaces the document body for an identity and category.
	PutDocument(ctx context.Context, identity, category string, body []byte) error

	// DeleteDocument removes the document. Deleting an absent document is not an error.
	DeleteDocument(ctx context.Context, identity, category string) error
}
