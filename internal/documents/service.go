package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"legaldocs-backend/internal/extract"
	"legaldocs-backend/internal/shared/storage/object"
)

// Service contains business logic for documents.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Upload saves the file to object storage and records the document in
// pending state. The type allow-list is checked against the sniffed
// content type before any bytes reach the store, so a rejected upload
// leaves nothing behind.
func (s *Service) Upload(ctx context.Context, ownerID, fileName string, r io.Reader) (Document, error) {
	if fileName == "" || ownerID == "" {
		return Document{}, ErrInvalidInput
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(r, sniff)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Document{}, err
	}
	fileType, err := extract.NormalizeType(http.DetectContentType(sniff[:n]), fileName)
	if err != nil {
		return Document{}, err
	}

	body := io.MultiReader(bytes.NewReader(sniff[:n]), r)
	storageKey, size, mimeType, err := s.Store.Save(ctx, ownerID, fileName, body)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		FileName:   fileName,
		FileType:   fileType,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		Status:     StatusPending,
		Metadata:   map[string]string{},
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	return doc, nil
}

// Get returns a document by id.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns an owner's documents.
func (s *Service) List(ctx context.Context, ownerID string) ([]Document, error) {
	if ownerID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByOwner(ctx, ownerID)
}

// Open streams the stored bytes of a document.
func (s *Service) Open(ctx context.Context, doc Document) (io.ReadCloser, error) {
	return s.Store.Open(ctx, doc.StorageKey)
}
