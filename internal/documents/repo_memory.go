package documents

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	r.data[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

// ListByOwner returns all documents for an owner, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.data {
		if doc.OwnerID == ownerID {
			out = append(out, cloneDoc(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus sets the document status, recording the failure detail in
// metadata when status is error.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status Status, errDetail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	if errDetail != "" {
		doc.Metadata[MetaError] = errDetail
	}
	doc.UpdatedAt = time.Now().UTC()
	r.data[id] = doc
	return nil
}

// SetFileHash records the content hash in document metadata.
func (r *MemoryRepo) SetFileHash(ctx context.Context, id, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	doc.Metadata[MetaFileHash] = hash
	doc.UpdatedAt = time.Now().UTC()
	r.data[id] = doc
	return nil
}

// SetAnalysisResults overwrites the analysis results payload.
func (r *MemoryRepo) SetAnalysisResults(ctx context.Context, id string, results json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	doc.AnalysisResults = append(json.RawMessage(nil), results...)
	doc.UpdatedAt = time.Now().UTC()
	r.data[id] = doc
	return nil
}

func cloneDoc(doc Document) Document {
	out := doc
	if doc.Metadata != nil {
		out.Metadata = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	out.AnalysisResults = append(json.RawMessage(nil), doc.AnalysisResults...)
	return out
}
