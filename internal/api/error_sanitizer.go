package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/whisperbox/internal/pkg/httputil"
	"github.com/ignite/whisperbox/internal/pkg/logger"
	"github.com/ignite/whisperbox/internal/service/blocklist"
	"github.com/ignite/whisperbox/internal/service/inbox"
	"github.com/ignite/whisperbox/internal/service/intake"
	"github.com/ignite/whisperbox/internal/service/profile"
	"github.com/ignite/whisperbox/internal/service/visits"
)

// respondError maps service errors onto HTTP responses. Client errors carry
// their message; anything unexpected is logged and answered with a generic
// 500 so storage details never leak.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *intake.RateLimitedError
	switch {
	case errors.As(err, &rl):
		retry := int(math.Ceil(rl.RetryAfter().Seconds()))
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		httputil.JSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   rl.Error(),
			"code":    "rate_limited",
			"resetAt": rl.ResetAt.UTC().Format(time.RFC3339),
		})

	case errors.Is(err, intake.ErrForbidden):
		httputil.Forbidden(w, "You cannot send messages to this user")

	case errors.Is(err, intake.ErrNotFound), errors.Is(err, visits.ErrNotFound):
		httputil.NotFound(w, "User not found")
	case errors.Is(err, profile.ErrNotFound):
		httputil.NotFound(w, "Not found")
	case errors.Is(err, inbox.ErrNotFound):
		httputil.NotFound(w, "Message not found")
	case errors.Is(err, blocklist.ErrNotFound):
		httputil.NotFound(w, "Block not found")

	case errors.Is(err, intake.ErrValidation):
		httputil.BadRequest(w, publicMessage(err, intake.ErrValidation))
	case errors.Is(err, visits.ErrValidation):
		httputil.BadRequest(w, publicMessage(err, visits.ErrValidation))
	case errors.Is(err, blocklist.ErrInvalidFingerprint):
		httputil.BadRequest(w, blocklist.ErrInvalidFingerprint.Error())
	case errors.Is(err, profile.ErrInvalidSubscription):
		httputil.BadRequest(w, publicMessage(err, profile.ErrInvalidSubscription))

	case errors.Is(err, intake.ErrBackendUnavailable), errors.Is(err, visits.ErrBackendUnavailable),
		errors.Is(err, blocklist.ErrUnavailable):
		logger.Error("api: backend unavailable", "path", r.URL.Path, "error", err)
		httputil.ErrorWithCode(w, http.StatusServiceUnavailable, "backend_unavailable", "service temporarily unavailable", nil)

	default:
		logger.Error("api: internal error", "path", r.URL.Path, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// publicMessage strips the sentinel prefix from a wrapped validation error
// ("validation error: message cannot be empty" -> "message cannot be empty").
func publicMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
