package speech

import (
	"context"
	"net/http"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/transport"
)

type CoordinatorAPI interface {
	Status() Status
	StartListening(ctx context.Context) error
	StopListening()
	Speak(ctx context.Context, text string) (uint64, error)
	CancelSpeaking()
}

type SpeakRequest struct {
	Text string `json:"text"`
}

type SpeakResponse struct {
	UtteranceID uint64 `json:"utteranceId"`
	Status      Status `json:"status"`
}

type Handler struct {
	*transport.BaseHandler
	Coordinator CoordinatorAPI
}

func NewHandler(baseHandler *transport.BaseHandler, coordinator CoordinatorAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Coordinator: coordinator,
	}
}

// GetStatus handles GET /speech
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Coordinator.Status())
}

// Listen handles POST /speech/listen
func (h *Handler) Listen(w http.ResponseWriter, r *http.Request) {
	if err := h.Coordinator.StartListening(r.Context()); err != nil {
		h.WriteErr(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, h.Coordinator.Status())
}

// Stop handles POST /speech/stop
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.Coordinator.StopListening()
	h.WriteJSON(w, http.StatusOK, h.Coordinator.Status())
}

// Speak handles POST /speech/speak
func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	id, err := h.Coordinator.Speak(r.Context(), req.Text)
	if err != nil {
		h.WriteErr(w, err)
		return
	}
	h.Logger.InfoContext(r.Context(), "speak requested", "actor", internal.ActorFromContext(r.Context()), "utterance_id", id)
	h.WriteJSON(w, http.StatusAccepted, SpeakResponse{UtteranceID: id, Status: h.Coordinator.Status()})
}

// Cancel handles POST /speech/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.Coordinator.CancelSpeaking()
	h.WriteJSON(w, http.StatusOK, h.Coordinator.Status())
}
