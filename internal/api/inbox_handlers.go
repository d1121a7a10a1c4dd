package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/whisperbox/internal/auth"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/httputil"
	"github.com/ignite/whisperbox/internal/service/inbox"
)

// currentUser returns the authenticated caller, writing a 401 when absent.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w)
	}
	return u, ok
}

// ListMessages returns a page of the caller's inbox.
//
//	GET /api/messages?filter=all|unread|flagged&limit=&offset=
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	p := ParsePagination(r, inbox.DefaultPageSize, inbox.MaxPageSize)
	page, err := h.inbox.List(r.Context(), u.ID, inbox.ListQuery{
		Filter: domain.ParseMessageFilter(r.URL.Query().Get("filter")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, page)
}

func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]bool{"success": true})
}

type flagRequest struct {
	Flagged *bool `json:"flagged"`
}

func (h *Handlers) FlagMessage(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req flagRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	flagged := true
	if req.Flagged != nil {
		flagged = *req.Flagged
	}
	if err := h.inbox.Flag(r.Context(), u.ID, chi.URLParam(r, "id"), flagged); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]bool{"success": true, "flagged": flagged})
}

func (h *Handlers) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.inbox.Delete(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// MessageSuspicion analyses the sender of one message.
//
//	GET /api/messages/{id}/suspicion
func (h *Handlers) MessageSuspicion(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.inbox.Suspicion(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, res)
}
