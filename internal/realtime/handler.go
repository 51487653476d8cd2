package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"legaldocs-backend/internal/jobs"
	"legaldocs-backend/internal/shared/telemetry"
)

// Dispatcher schedules analysis work on behalf of connected clients.
// *jobs.Scheduler satisfies it.
type Dispatcher interface {
	Schedule(ctx context.Context, kind string, subjectIDs []string) (jobs.Job, error)
}

// Handler upgrades websocket connections and routes client envelopes to
// the manager and the scheduler. It remembers which client scheduled
// which job so completions can be pushed back to the originator.
type Handler struct {
	Manager *Manager
	Sched   Dispatcher

	upgrader websocket.Upgrader

	mu       sync.Mutex
	watchers map[string]jobWatch // job id -> originating client
}

type jobWatch struct {
	clientID   string
	documentID string
}

// NewHandler constructs a Handler.
func NewHandler(m *Manager, sched Dispatcher) *Handler {
	return &Handler{
		Manager: m,
		Sched:   sched,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		watchers: make(map[string]jobWatch),
	}
}

// RegisterRoutes attaches the websocket endpoint to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.serve)
}

// JobCompleted pushes the outcome of a finished job to the client that
// scheduled it. Wired as the scheduler's completion callback.
func (h *Handler) JobCompleted(job jobs.Job) {
	h.mu.Lock()
	watch, ok := h.watchers[job.ID]
	if ok {
		delete(h.watchers, job.ID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	env := Envelope{
		Type:       TypeAnalysisResponse,
		DocumentID: watch.documentID,
		JobID:      job.ID,
	}
	switch job.State {
	case jobs.StateSucceeded:
		env.Payload = job.Result
	case jobs.StateCancelled:
		env.Error = "analysis cancelled"
	default:
		env.Error = job.Error
		if env.Error == "" {
			env.Error = "analysis failed"
		}
	}
	h.Manager.SendTo(watch.clientID, env)
}

func (h *Handler) serve(c *gin.Context) {
	clientID := strings.TrimSpace(c.Query("clientId"))
	if clientID == "" {
		clientID = strings.TrimSpace(c.GetHeader("X-Client-Id"))
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		telemetry.Error("websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	h.Manager.Register(clientID, conn)
	defer h.Manager.Unregister(clientID)

	ctx := c.Request.Context()
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		h.handle(ctx, clientID, env)
	}
}

func (h *Handler) handle(ctx context.Context, clientID string, env Envelope) {
	switch env.Type {
	case TypeChatMessage:
		h.Manager.SendTo(clientID, Envelope{
			Type:    TypeChatResponse,
			Message: env.Message,
		})
		h.Manager.BroadcastExcept(clientID, Envelope{
			Type:     TypeBroadcast,
			ClientID: clientID,
			Message:  env.Message,
		})
	case TypeDocumentAnalysis:
		h.scheduleAnalysis(ctx, clientID, env.DocumentID)
	case TypeTyping:
		h.Manager.BroadcastTyping(clientID, env.Typing)
	default:
		h.Manager.SendTo(clientID, Envelope{
			Type:  TypeChatResponse,
			Error: "unknown message type: " + env.Type,
		})
	}
}

func (h *Handler) scheduleAnalysis(ctx context.Context, clientID, documentID string) {
	job, err := h.Sched.Schedule(ctx, jobs.KindAnalysis, []string{documentID})
	if err != nil {
		h.Manager.SendTo(clientID, Envelope{
			Type:       TypeAnalysisResponse,
			DocumentID: documentID,
			Error:      err.Error(),
		})
		return
	}

	// Cached results come back already finished; everything else is
	// acknowledged now and pushed again on completion.
	if job.State.Terminal() {
		h.Manager.SendTo(clientID, Envelope{
			Type:       TypeAnalysisResponse,
			DocumentID: documentID,
			JobID:      job.ID,
			Payload:    job.Result,
			Error:      job.Error,
		})
		return
	}

	h.mu.Lock()
	h.watchers[job.ID] = jobWatch{clientID: clientID, documentID: documentID}
	h.mu.Unlock()

	h.Manager.SendTo(clientID, Envelope{
		Type:       TypeAnalysisResponse,
		DocumentID: documentID,
		JobID:      job.ID,
	})
}
