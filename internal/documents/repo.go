package documents

import (
	"context"
	"encoding/json"
)

// Repo defines persistence operations for documents. The pipeline reads
// whole records and writes back status, metadata, and analysis results;
// status transitions are persisted before the pipeline returns.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
	UpdateStatus(ctx context.Context, id string, status Status, errDetail string) error
	SetFileHash(ctx context.Context, id, hash string) error
	SetAnalysisResults(ctx context.Context, id string, results json.RawMessage) error
}
