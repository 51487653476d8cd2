package analysis

import "legaldocs-backend/internal/inference"

// KindResult is the output of one analysis kind, keeping the model name
// and token accounting alongside the generated text.
type KindResult struct {
	Text  string          `json:"text"`
	Model string          `json:"model,omitempty"`
	Usage inference.Usage `json:"usage"`
}

// Result maps an analysis kind (summary, entities, clauses, risk_analysis)
// to its output.
type Result map[string]KindResult

// StatusUpdate is the payload published to the processing_status cache slot
// while a document moves through the pipeline.
type StatusUpdate struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}
