package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tontina/caisse-engine/internal/domain/model"
)

// StubDocumentStore is a development/test adapter that derives a
// deterministic storage reference from the file contents instead of
// uploading anywhere. It implements port.DocumentStorage.
type StubDocumentStore struct {
	baseURL string
}

// NewStubDocumentStore creates a new stub adapter.
func NewStubDocumentStore(baseURL string) *StubDocumentStore {
	if baseURL == "" {
		baseURL = "https://documents.invalid"
	}
	return &StubDocumentStore{baseURL: baseURL}
}

// Upload returns a reference keyed by the content hash, so the same file
// always maps to the same path. This allows repeatable test scenarios.
func (s *StubDocumentStore) Upload(_ context.Context, filename string, content []byte) (model.DocumentRef, error) {
	if filename == "" {
		return model.DocumentRef{}, fmt.Errorf("filename is required")
	}
	if len(content) == 0 {
		return model.DocumentRef{}, fmt.Errorf("content is required")
	}

	h := sha256.Sum256(content)
	digest := hex.EncodeToString(h[:8])
	path := fmt.Sprintf("proofs/%s/%s", digest, filename)

	return model.DocumentRef{
		URL:  fmt.Sprintf("%s/%s", s.baseURL, path),
		Path: path,
		Size: int64(len(content)),
	}, nil
}
