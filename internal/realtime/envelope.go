package realtime

import "encoding/json"

// Envelope message types. The first three arrive from clients, the rest
// are sent by the server.
const (
	TypeChatMessage      = "chat_message"
	TypeDocumentAnalysis = "document_analysis"
	TypeTyping           = "typing"

	TypeChatResponse     = "chat_response"
	TypeAnalysisResponse = "analysis_response"
	TypeTypingStatus     = "typing_status"
	TypeBroadcast        = "broadcast"
)

// Envelope is the wire format for websocket messages in both directions.
// Fields are populated per type; unused ones are omitted.
type Envelope struct {
	Type          string          `json:"type"`
	ClientID      string          `json:"clientId,omitempty"`
	DocumentID    string          `json:"documentId,omitempty"`
	JobID         string          `json:"jobId,omitempty"`
	Message       string          `json:"message,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Typing        bool            `json:"typing,omitempty"`
	TypingClients []string        `json:"typingClients,omitempty"`
	Error         string          `json:"error,omitempty"`
}
