package cursor

import (
	"context"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/services/collector/domain"
)

// Storage keeps the cursor document in the blob storage next to derived documents
type Storage struct {
	store blob.Storage
	uri   string
}

// NewStorage returns a cursor saved at store.ResolveURI(name)
func NewStorage(store blob.Storage, name string) *Storage {
	return &Storage{store: store, uri: store.ResolveURI(name)}
}

// URI is where the cursor document lives
func (s *Storage) URI() string { return s.uri }

// Load fetches the document; a miss reads as the epoch
func (s *Storage) Load(ctx context.Context) (domain.Position, error) {
	b, ok, err := s.store.Load(ctx, s.uri)
	if err != nil {
		return domain.Position{}, err
	}
	if !ok {
		return domain.Min(), nil
	}
	return Decode(b)
}

// Save stores the encoded document
func (s *Storage) Save(ctx context.Context, p domain.Position) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, "application/json", s.uri, b)
}
