package api

import (
	"net/http"

	"github.com/ignite/whisperbox/internal/classify"
	"github.com/ignite/whisperbox/internal/fingerprint"
	"github.com/ignite/whisperbox/internal/pkg/httputil"
	"github.com/ignite/whisperbox/internal/service/intake"
	"github.com/ignite/whisperbox/internal/service/visits"
)

type sendMessageRequest struct {
	RecipientUsername string               `json:"recipient_username"`
	Content           string               `json:"content"`
	ClientData        *classify.ClientData `json:"clientData,omitempty"`
}

type sendMessageResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Remaining int    `json:"remaining"`
}

// SendMessage accepts an anonymous message.
//
//	POST /messages/send
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.sender.Send(r.Context(), intake.SendRequest{
		RecipientUsername: req.RecipientUsername,
		Content:           req.Content,
		ClientIP:          fingerprint.ClientIP(r.Header, r.RemoteAddr),
		Request:           classify.InputFromRequest(r, req.ClientData),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	httputil.Created(w, sendMessageResponse{
		Success:   true,
		MessageID: res.MessageID,
		Remaining: res.Remaining,
	})
}

type trackVisitRequest struct {
	ProfileID  string               `json:"profileId"`
	ClientData *classify.ClientData `json:"clientData,omitempty"`
}

type trackVisitResponse struct {
	Success bool                `json:"success"`
	Tracked *visits.TrackResult `json:"tracked"`
}

// TrackVisit records a profile view. A repeat within the hour still succeeds.
//
//	POST /visits/track
func (h *Handlers) TrackVisit(w http.ResponseWriter, r *http.Request) {
	var req trackVisitRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.tracker.Track(r.Context(), visits.TrackRequest{
		ProfileID: req.ProfileID,
		ClientIP:  fingerprint.ClientIP(r.Header, r.RemoteAddr),
		Request:   classify.InputFromRequest(r, req.ClientData),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, trackVisitResponse{Success: true, Tracked: res})
}
