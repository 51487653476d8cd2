package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    file_name,
    file_type,
    mime_type,
    size_bytes,
    storage_key,
    status,
    metadata,
    analysis_results,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	meta := doc.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	results := doc.AnalysisResults
	if len(results) == 0 {
		results = json.RawMessage("null")
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.FileName,
		doc.FileType,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageKey,
		string(doc.Status),
		metaJSON,
		[]byte(results),
		createdAt,
		createdAt,
	)
	return err
}

// GetByID returns a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT id, owner_id, file_name, file_type, mime_type, size_bytes, storage_key,
       status, metadata, analysis_results, created_at, updated_at
FROM documents
WHERE id = $1`

	row := r.DB.QueryRowContext(ctx, query, id)
	return scanDocument(row)
}

// ListByOwner returns all documents for an owner, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	const query = `
SELECT id, owner_id, file_name, file_type, mime_type, size_bytes, storage_key,
       status, metadata, analysis_results, created_at, updated_at
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateStatus sets the document status and merges the failure detail into
// metadata when present.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status Status, errDetail string) error {
	const query = `
UPDATE documents
SET status = $2,
    metadata = CASE WHEN $3 <> '' THEN metadata || jsonb_build_object('error', $3::text) ELSE metadata END,
    updated_at = NOW()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, id, string(status), errDetail)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetFileHash records the content hash in document metadata.
func (r *PGRepo) SetFileHash(ctx context.Context, id, hash string) error {
	const query = `
UPDATE documents
SET metadata = metadata || jsonb_build_object('fileHash', $2::text),
    updated_at = NOW()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, id, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetAnalysisResults overwrites the analysis results payload.
func (r *PGRepo) SetAnalysisResults(ctx context.Context, id string, results json.RawMessage) error {
	const query = `
UPDATE documents
SET analysis_results = $2,
    updated_at = NOW()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, id, []byte(results))
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc      Document
		status   string
		metaJSON []byte
		results  []byte
	)
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.FileName,
		&doc.FileType,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&status,
		&metaJSON,
		&results,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &doc.Metadata); err != nil {
			return Document{}, err
		}
	}
	if len(results) > 0 && string(results) != "null" {
		doc.AnalysisResults = json.RawMessage(results)
	}
	return doc, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
