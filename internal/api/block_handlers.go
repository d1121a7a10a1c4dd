package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/httputil"
)

type addBlockRequest struct {
	MessageID   string `json:"message_id"`
	Fingerprint string `json:"fingerprint"`
	Reason      string `json:"reason"`
}

// AddBlock blocks a sender, either by fingerprint or by one of their
// messages. Blocking an already blocked sender returns the existing entry.
//
//	POST /block/add
//	POST /api/blocks
func (h *Handlers) AddBlock(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req addBlockRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	fp := req.Fingerprint
	if req.MessageID != "" {
		msg, err := h.inbox.Get(r.Context(), u.ID, req.MessageID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		fp = msg.SenderFingerprint
	}
	if strings.TrimSpace(fp) == "" {
		httputil.BadRequest(w, "message_id or fingerprint is required")
		return
	}

	entry, err := h.blocks.Block(r.Context(), u.ID, fp, domain.ParseBlockReason(req.Reason))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.Created(w, entry)
}

type removeBlockRequest struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
}

// RemoveBlock unblocks by fingerprint or block ID, read from the body or
// the query string.
//
//	DELETE /block/remove
func (h *Handlers) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req removeBlockRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = r.URL.Query().Get("id")
	}
	if req.Fingerprint == "" {
		req.Fingerprint = r.URL.Query().Get("fingerprint")
	}

	var err error
	switch {
	case req.ID != "":
		err = h.blocks.UnblockByID(r.Context(), u.ID, req.ID)
	case req.Fingerprint != "":
		err = h.blocks.Unblock(r.Context(), u.ID, req.Fingerprint)
	default:
		httputil.BadRequest(w, "id or fingerprint is required")
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]bool{"success": true})
}

// RemoveBlockByID is the REST form of RemoveBlock.
//
//	DELETE /api/blocks/{id}
func (h *Handlers) RemoveBlockByID(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.blocks.UnblockByID(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) ListBlocks(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	entries, err := h.blocks.List(r.Context(), u.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"blocks": entries, "total": len(entries)})
}
