package documents

import (
	"encoding/json"
	"time"
)

type documentResponse struct {
	ID              string            `json:"id"`
	FileName        string            `json:"fileName"`
	FileType        string            `json:"fileType"`
	SizeBytes       int64             `json:"sizeBytes"`
	Status          string            `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	AnalysisResults json.RawMessage   `json:"analysisResults,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func toResponse(doc Document) documentResponse {
	return documentResponse{
		ID:              doc.ID,
		FileName:        doc.FileName,
		FileType:        doc.FileType,
		SizeBytes:       doc.SizeBytes,
		Status:          string(doc.Status),
		Metadata:        doc.Metadata,
		AnalysisResults: doc.AnalysisResults,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}
