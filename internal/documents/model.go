package documents

import (
	"encoding/json"
	"time"
)

// Status is the processing state of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
)

// Metadata keys written by the pipeline.
const (
	MetaFileHash = "fileHash"
	MetaError    = "error"
)

// Document represents an uploaded document owned by a user.
// AnalysisResults is opaque to this package; the analysis pipeline owns
// its shape and overwrites it wholesale on each run.
type Document struct {
	ID              string
	OwnerID         string
	FileName        string
	FileType        string
	MimeType        string
	SizeBytes       int64
	StorageKey      string
	Status          Status
	Metadata        map[string]string
	AnalysisResults json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
