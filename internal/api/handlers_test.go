package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/whisperbox/internal/analytics"
	"github.com/ignite/whisperbox/internal/auth"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/pkg/httputil"
	"github.com/ignite/whisperbox/internal/service/blocklist"
	"github.com/ignite/whisperbox/internal/service/inbox"
	"github.com/ignite/whisperbox/internal/service/intake"
	"github.com/ignite/whisperbox/internal/service/profile"
	"github.com/ignite/whisperbox/internal/service/suspicion"
	"github.com/ignite/whisperbox/internal/service/visits"
)

// --- mocks ---

type mockSender struct {
	last intake.SendRequest
	res  *intake.SendResult
	err  error
}

func (m *mockSender) Send(_ context.Context, req intake.SendRequest) (*intake.SendResult, error) {
	m.last = req
	return m.res, m.err
}

type mockTracker struct {
	last visits.TrackRequest
	err  error
}

func (m *mockTracker) Track(_ context.Context, req visits.TrackRequest) (*visits.TrackResult, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &visits.TrackResult{DeviceType: domain.DeviceMobile, SourcePlatform: "instagram"}, nil
}

type mockInbox struct {
	messages map[string]*domain.Message
	lastList inbox.ListQuery
	flagged  map[string]bool
}

func (m *mockInbox) List(_ context.Context, _ string, q inbox.ListQuery) (*inbox.Page, error) {
	m.lastList = q
	return &inbox.Page{Messages: []domain.Message{}, Counts: inbox.Counts{Total: 3, Unread: 1}, Limit: q.Limit, Offset: q.Offset}, nil
}

func (m *mockInbox) Get(_ context.Context, recipientID, id string) (*domain.Message, error) {
	msg, ok := m.messages[id]
	if !ok || msg.RecipientID != recipientID {
		return nil, inbox.ErrNotFound
	}
	return msg, nil
}

func (m *mockInbox) MarkRead(ctx context.Context, recipientID, id string) error {
	_, err := m.Get(ctx, recipientID, id)
	return err
}

func (m *mockInbox) Flag(ctx context.Context, recipientID, id string, flagged bool) error {
	if _, err := m.Get(ctx, recipientID, id); err != nil {
		return err
	}
	m.flagged[id] = flagged
	return nil
}

func (m *mockInbox) Delete(ctx context.Context, recipientID, id string) error {
	_, err := m.Get(ctx, recipientID, id)
	return err
}

func (m *mockInbox) Suspicion(ctx context.Context, recipientID, id string) (suspicion.Result, error) {
	if _, err := m.Get(ctx, recipientID, id); err != nil {
		return suspicion.Result{}, err
	}
	return suspicion.Result{IsSuspicious: true, Severity: suspicion.SeverityHigh, Reason: "same message sent 4 times"}, nil
}

type mockBlocks struct {
	blocked   map[string]string
	removedID string
}

func (m *mockBlocks) Block(_ context.Context, recipientID, fp string, reason domain.BlockReason) (*domain.BlockEntry, error) {
	m.blocked[fp] = string(reason)
	return &domain.BlockEntry{ID: "b1", RecipientID: recipientID, Fingerprint: fp, Reason: reason}, nil
}

func (m *mockBlocks) Unblock(_ context.Context, _ string, fp string) error {
	if _, ok := m.blocked[fp]; !ok {
		return blocklist.ErrNotFound
	}
	delete(m.blocked, fp)
	return nil
}

func (m *mockBlocks) UnblockByID(_ context.Context, _ string, id string) error {
	m.removedID = id
	return nil
}

func (m *mockBlocks) List(context.Context, string) ([]domain.BlockEntry, error) {
	return []domain.BlockEntry{}, nil
}

type mockProfiles struct {
	prefs profile.Preferences
}

func (m *mockProfiles) ByID(_ context.Context, id string) (*domain.Profile, error) {
	return &domain.Profile{ID: id, Username: "alice"}, nil
}

func (m *mockProfiles) SetPreferences(_ context.Context, _ string, prefs profile.Preferences) error {
	m.prefs = prefs
	return nil
}

func (m *mockProfiles) Subscribe(_ context.Context, profileID string, sub domain.PushSubscription) (*domain.PushSubscription, error) {
	if sub.P256dh == "" {
		return nil, profile.ErrInvalidSubscription
	}
	sub.ID, sub.ProfileID = "s1", profileID
	return &sub, nil
}

func (m *mockProfiles) Unsubscribe(context.Context, string, string) error {
	return profile.ErrNotFound
}

// headerAuth trusts X-Test-User. The JWT path is covered in package auth.
type headerAuth struct{}

func (headerAuth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Test-User")
		if id == "" {
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), &domain.User{ID: id})))
	})
}

type testEnv struct {
	router  http.Handler
	sender  *mockSender
	tracker *mockTracker
	inbox   *mockInbox
	blocks  *mockBlocks
	profs   *mockProfiles
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sender:  &mockSender{res: &intake.SendResult{MessageID: "m-new", Remaining: 9}},
		tracker: &mockTracker{},
		inbox: &mockInbox{
			messages: map[string]*domain.Message{
				"m1": {ID: "m1", RecipientID: "alice", SenderFingerprint: "fp-of-sender"},
			},
			flagged: map[string]bool{},
		},
		blocks: &mockBlocks{blocked: map[string]string{}},
		profs:  &mockProfiles{},
	}
	env.router = NewRouter(Deps{
		Sender:   env.sender,
		Tracker:  env.tracker,
		Inbox:    env.inbox,
		Blocks:   env.blocks,
		Profiles: env.profs,
		Auth:     headerAuth{},
		Health:   NewHealthChecker(nil, nil),
	})
	return env
}

func (e *testEnv) do(method, path, user string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// --- public endpoints ---

func TestSendMessage_Created(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do("POST", "/messages/send", "", map[string]interface{}{
		"recipient_username": "alice",
		"content":            "hello",
		"clientData":         map[string]interface{}{"referrer": "https://l.instagram.com/", "language": "en-US"},
	}, "X-Forwarded-For", "203.0.113.7, 10.0.0.1", "User-Agent", "Mozilla/5.0 (iPhone) Instagram 300.0")

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(9), body["remaining"])

	assert.Equal(t, "alice", env.sender.last.RecipientUsername)
	assert.Equal(t, "203.0.113.7", env.sender.last.ClientIP)
	assert.Equal(t, "https://l.instagram.com/", env.sender.last.Request.Referrer)
	assert.Contains(t, env.sender.last.Request.UserAgent, "Instagram")
}

func TestSendMessage_ErrorMapping(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"blocked", intake.ErrForbidden, http.StatusForbidden, "You cannot send messages to this user"},
		{"unknown recipient", intake.ErrNotFound, http.StatusNotFound, "User not found"},
		{"validation", intake.ErrValidation, http.StatusBadRequest, "validation error"},
		{"backend", intake.ErrBackendUnavailable, http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"unexpected", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter(t)
			env.sender.err = tt.err
			rr := env.do("POST", "/messages/send", "", map[string]string{"recipient_username": "alice", "content": "x"})
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.msg, decode(t, rr)["error"])
		})
	}

	t.Run("rate limited", func(t *testing.T) {
		env := setupTestRouter(t)
		env.sender.err = &intake.RateLimitedError{ResetAt: now.Add(42 * time.Minute), Now: now}
		rr := env.do("POST", "/messages/send", "", map[string]string{"recipient_username": "alice", "content": "x"})

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "2520", rr.Header().Get("Retry-After"))
		body := decode(t, rr)
		assert.Equal(t, "Too many messages. Try again in 42 minutes.", body["error"])
		assert.Equal(t, "2024-06-01T12:42:00Z", body["resetAt"])
	})
}

func TestSendMessage_ValidationMessageIsPublic(t *testing.T) {
	env := setupTestRouter(t)
	_, env.sender.err = intake.ValidateContent("   ")

	rr := env.do("POST", "/messages/send", "", map[string]string{"recipient_username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "message cannot be empty", decode(t, rr)["error"])
}

func TestSendMessage_BadJSON(t *testing.T) {
	env := setupTestRouter(t)
	req := httptest.NewRequest("POST", "/messages/send", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTrackVisit(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do("POST", "/visits/track", "", map[string]interface{}{
		"profileId":  "p1",
		"clientData": map[string]string{"pageUrl": "https://whisperbox.example/alice?utm_source=ig"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "instagram", body["tracked"].(map[string]interface{})["source_platform"])
	assert.Equal(t, "ig", env.tracker.last.Request.Query.Get("utm_source"))

	env.tracker.err = visits.ErrNotFound
	rr = env.do("POST", "/visits/track", "", map[string]string{"profileId": "nobody"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- recipient endpoints ---

func TestRecipientRoutesRequireAuth(t *testing.T) {
	env := setupTestRouter(t)
	for _, path := range []string{"/api/messages", "/api/blocks", "/api/analytics/visits"} {
		rr := env.do("GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
	rr := env.do("POST", "/block/add", "", map[string]string{"fingerprint": "x"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListMessages(t *testing.T) {
	env := setupTestRouter(t)
	rr := env.do("GET", "/api/messages?filter=unread&limit=500&offset=20", "alice", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.FilterUnread, env.inbox.lastList.Filter)
	assert.Equal(t, inbox.MaxPageSize, env.inbox.lastList.Limit)
	assert.Equal(t, 20, env.inbox.lastList.Offset)
	body := decode(t, rr)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(1), body["unread"])
}

func TestMessageOwnership(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do("POST", "/api/messages/m1/read", "mallory", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do("POST", "/api/messages/m1/flag", "alice", map[string]bool{"flagged": true})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.inbox.flagged["m1"])

	rr = env.do("DELETE", "/api/messages/m1", "alice", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do("GET", "/api/messages/m1/suspicion", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "high", decode(t, rr)["severity"])
}

func TestBlockByMessage(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do("POST", "/block/add", "alice", map[string]string{"message_id": "m1", "reason": "harassment"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "harassment", env.blocks.blocked["fp-of-sender"])

	rr = env.do("POST", "/block/add", "mallory", map[string]string{"message_id": "m1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do("POST", "/api/blocks", "alice", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRemoveBlock(t *testing.T) {
	env := setupTestRouter(t)
	env.blocks.blocked["fp-of-sender"] = "spam"

	rr := env.do("DELETE", "/block/remove?fingerprint=fp-of-sender", "alice", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do("DELETE", "/block/remove", "alice", map[string]string{"fingerprint": "fp-of-sender"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do("DELETE", "/block/remove", "alice", map[string]string{"id": "b7"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "b7", env.blocks.removedID)

	rr = env.do("DELETE", "/block/remove", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotificationSettings(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do("PUT", "/api/notifications/preferences", "alice", map[string]bool{"push_enabled": true})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.profs.prefs.PushEnabled)

	rr = env.do("POST", "/api/notifications/subscriptions", "alice", map[string]interface{}{
		"endpoint": "https://push.example/abc",
		"keys":     map[string]string{"p256dh": "k", "auth": "a"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "alice", decode(t, rr)["profile_id"])

	rr = env.do("POST", "/api/notifications/subscriptions", "alice", map[string]string{"endpoint": "https://push.example/abc"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do("DELETE", "/api/notifications/subscriptions", "alice", map[string]string{"endpoint": "https://push.example/zzz"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVisitAnalytics_Disabled(t *testing.T) {
	env := setupTestRouter(t)
	rr := env.do("GET", "/api/analytics/visits?hours=48", "alice", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, false, body["enabled"])
	assert.Equal(t, float64(48), body["hours"])
}

type stubStats struct{ hours int }

func (s *stubStats) Summary(_ context.Context, _ string, hours int) (analytics.Summary, error) {
	s.hours = hours
	sum := analytics.EmptySummary(hours)
	sum.Enabled = true
	sum.Total = 5
	return sum, nil
}

func TestVisitAnalytics_DefaultHours(t *testing.T) {
	stats := &stubStats{}
	router := NewRouter(Deps{Auth: headerAuth{}, Analytics: stats})

	req := httptest.NewRequest("GET", "/api/analytics/visits", nil)
	req.Header.Set("X-Test-User", "alice")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 24, stats.hours)
}

// --- health ---

func TestHealth(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do("GET", "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do("GET", "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth_DatabaseUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	hc := NewHealthChecker(db, nil)
	rr := httptest.NewRecorder()
	hc.HandleReadiness(rr, httptest.NewRequest("GET", "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "healthy", body["status"])
}

func TestHealth_NonCriticalProbeDegrades(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	hc := NewHealthChecker(db, nil)
	hc.AddProbe("notifications", false, StaticProbe("down", "queue unreachable"))
	rr := httptest.NewRecorder()
	hc.HandleReadiness(rr, httptest.NewRequest("GET", "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "degraded", body["status"])
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/?page=3&limit=10", nil)
	assert.Equal(t, PaginationParams{Limit: 10, Offset: 20}, ParsePagination(r, 50, 200))

	r = httptest.NewRequest("GET", "/?limit=-1&offset=-5", nil)
	assert.Equal(t, PaginationParams{Limit: 50, Offset: 0}, ParsePagination(r, 50, 200))
}
