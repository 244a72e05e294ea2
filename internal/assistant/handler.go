package assistant

import (
	"context"
	"net/http"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/transport"
)

type SessionAPI interface {
	Snapshot() Snapshot
	Send(ctx context.Context, text string) (Result, error)
	SetDraft(text string)
	Cancel(ctx context.Context) bool
	ClearTranscript()
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type DraftRequest struct {
	Text string `json:"text"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type Handler struct {
	*transport.BaseHandler
	Session SessionAPI
}

func NewHandler(baseHandler *transport.BaseHandler, session SessionAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Session:     session,
	}
}

// GetConversation handles GET /assistant
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Session.Snapshot())
}

// SendMessage handles POST /assistant/messages. It blocks until the reply is
// generated, the request is cancelled, or the response timeout passes.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Session.Send(r.Context(), req.Text)
	if err != nil {
		h.WriteErr(w, err)
		return
	}

	h.Logger.InfoContext(r.Context(), "assistant message handled",
		"actor", internal.ActorFromContext(r.Context()),
		"status", result.Status)

	status := http.StatusCreated
	if result.Status == StatusIgnored {
		status = http.StatusOK
	}
	h.WriteJSON(w, status, result)
}

// SetDraft handles PUT /assistant/draft
func (h *Handler) SetDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	h.Session.SetDraft(req.Text)
	h.WriteJSON(w, http.StatusOK, h.Session.Snapshot())
}

// Cancel handles POST /assistant/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, CancelResponse{Cancelled: h.Session.Cancel(r.Context())})
}

// ClearTranscript handles DELETE /assistant/transcript
func (h *Handler) ClearTranscript(w http.ResponseWriter, r *http.Request) {
	h.Session.ClearTranscript()
	w.WriteHeader(http.StatusNoContent)
}
