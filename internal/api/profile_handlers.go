package api

import (
	"net/http"
	"strconv"

	"github.com/ignite/whisperbox/internal/analytics"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/httputil"
	"github.com/ignite/whisperbox/internal/service/profile"
)

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.ByID(r.Context(), u.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, p)
}

// UpdatePreferences switches alert channels.
//
//	PUT /api/notifications/preferences
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var prefs profile.Preferences
	if !httputil.Decode(w, r, &prefs) {
		return
	}
	if err := h.profiles.SetPreferences(r.Context(), u.ID, prefs); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, prefs)
}

type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Subscribe registers the browser's push endpoint (PushSubscription.toJSON()).
//
//	POST /api/notifications/subscriptions
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req subscriptionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	sub, err := h.profiles.Subscribe(r.Context(), u.ID, domain.PushSubscription{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.Created(w, sub)
}

func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req subscriptionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.profiles.Unsubscribe(r.Context(), u.ID, req.Endpoint); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// VisitAnalytics sums the caller's visit counters.
//
//	GET /api/analytics/visits?hours=24
func (h *Handlers) VisitAnalytics(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	hours, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || hours < 1 {
		hours = 24
	}
	if h.analytics == nil {
		httputil.OK(w, analytics.EmptySummary(hours))
		return
	}
	sum, err := h.analytics.Summary(r.Context(), u.ID, hours)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, sum)
}
