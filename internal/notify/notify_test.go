package notify

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/domain"
)

// --- fakes ---

type fakeProfiles struct {
	profiles map[string]*domain.Profile
	err      error
}

func (f *fakeProfiles) ByID(_ context.Context, id string) (*domain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

type fakeSubs struct {
	mu      sync.Mutex
	subs    []domain.PushSubscription
	deleted []string
}

func (f *fakeSubs) ListByProfile(_ context.Context, profileID string) ([]domain.PushSubscription, error) {
	var out []domain.PushSubscription
	for _, s := range f.subs {
		if s.ProfileID == profileID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeleteEndpoints(_ context.Context, endpoints []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, endpoints...)
	return len(endpoints), nil
}

type fakePush struct {
	mu       sync.Mutex
	results  map[string]error
	payloads [][]byte
}

func (f *fakePush) Send(_ context.Context, sub domain.PushSubscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.results[sub.Endpoint]
}

type fakeEmail struct {
	to, subject, body string
}

func (f *fakeEmail) Send(_ context.Context, to, subject, html string) error {
	f.to, f.subject, f.body = to, subject, html
	return nil
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(config.TemplateConfig{}, "https://whisperbox.example/inbox")
	require.NoError(t, err)
	return r
}

func testNotification() domain.NewMessageNotification {
	return domain.NewMessageNotification{
		RecipientID:      "r1",
		MessageID:        "m1",
		Preview:          "you were great today",
		ReferrerPlatform: "instagram",
		DeviceType:       "mobile",
		CreatedAt:        time.Now(),
	}
}

// --- templates ---

func TestRenderer_Defaults(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Render(testNotification(), &domain.Profile{Username: "alice"})
	require.NoError(t, err)

	assert.Equal(t, "New anonymous message", out.Title)
	assert.Equal(t, "Someone from Instagram: you were great today", out.Body)
	assert.Equal(t, "@alice, you have a new anonymous message", out.EmailSubject)
	assert.Contains(t, out.EmailBody, "https://whisperbox.example/inbox")

	n := testNotification()
	n.ReferrerPlatform = "direct"
	out, err = r.Render(n, &domain.Profile{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "you were great today", out.Body)
}

func TestRenderer_CustomAndInvalid(t *testing.T) {
	r, err := NewRenderer(config.TemplateConfig{Title: "{{ device_type }} sender"}, "")
	require.NoError(t, err)
	out, err := r.Render(testNotification(), &domain.Profile{Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "mobile sender", out.Title)

	_, err = NewRenderer(config.TemplateConfig{Body: "{% if preview %}never closed"}, "")
	assert.Error(t, err)
}

// --- deliverer ---

func TestDeliver_PushPrunesExpired(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{
		"r1": {ID: "r1", Username: "alice", Email: "alice@example.com", PushEnabled: true, EmailEnabled: true},
	}}
	subs := &fakeSubs{subs: []domain.PushSubscription{
		{ID: "s1", ProfileID: "r1", Endpoint: "https://push.example/live"},
		{ID: "s2", ProfileID: "r1", Endpoint: "https://push.example/gone"},
		{ID: "s3", ProfileID: "r1", Endpoint: "https://push.example/flaky"},
		{ID: "s4", ProfileID: "someone-else", Endpoint: "https://push.example/other"},
	}}
	push := &fakePush{results: map[string]error{
		"https://push.example/gone":  ErrSubscriptionExpired,
		"https://push.example/flaky": errors.New("status 500"),
	}}
	email := &fakeEmail{}

	d := NewDeliverer(profiles, subs, newRenderer(t), push, email, 0, "https://whisperbox.example/inbox")
	rep, err := d.Deliver(context.Background(), testNotification())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.PushSent)
	assert.Equal(t, 1, rep.PushFailed)
	assert.Equal(t, 1, rep.Expired)
	assert.True(t, rep.EmailSent)
	assert.Equal(t, []string{"https://push.example/gone"}, subs.deleted)
	assert.Equal(t, "alice@example.com", email.to)

	require.Len(t, push.payloads, 3)
	var payload PushPayload
	require.NoError(t, json.Unmarshal(push.payloads[0], &payload))
	assert.Equal(t, "m1", payload.MessageID)
	assert.Equal(t, "New anonymous message", payload.Title)
}

func TestDeliver_PreferencesOff(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{"r1": {ID: "r1", Username: "alice"}}}
	push := &fakePush{}
	d := NewDeliverer(profiles, &fakeSubs{}, newRenderer(t), push, nil, 0, "")

	rep, err := d.Deliver(context.Background(), testNotification())
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Empty(t, push.payloads)
}

func TestDeliver_ProfileError(t *testing.T) {
	d := NewDeliverer(&fakeProfiles{err: errors.New("db down")}, &fakeSubs{}, newRenderer(t), &fakePush{}, nil, 0, "")
	_, err := d.Deliver(context.Background(), testNotification())
	assert.Error(t, err)
}

// --- web push transport ---

func testSubscription(t *testing.T, endpoint string) domain.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return domain.PushSubscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func TestWebPushSender(t *testing.T) {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	status := http.StatusCreated
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	sender := NewWebPushSender(config.PushConfig{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		Subscriber:      "ops@whisperbox.example",
		TTLSeconds:      60,
		TimeoutSeconds:  5,
	}, srv.Client())
	sub := testSubscription(t, srv.URL+"/push/abc")

	require.NoError(t, sender.Send(context.Background(), sub, []byte(`{"title":"hi"}`)))

	status = http.StatusGone
	assert.ErrorIs(t, sender.Send(context.Background(), sub, []byte(`{}`)), ErrSubscriptionExpired)

	status = http.StatusNotFound
	assert.ErrorIs(t, sender.Send(context.Background(), sub, []byte(`{}`)), ErrSubscriptionExpired)

	status = http.StatusBadRequest
	err = sender.Send(context.Background(), sub, []byte(`{}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSubscriptionExpired)
}

// --- dispatch ---

type fakeSQS struct {
	mu      sync.Mutex
	sent    chan string
	receive []types.Message
	deleted []string
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent <- aws.ToString(in.MessageBody)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{Messages: f.receive}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestPublisher_Enqueues(t *testing.T) {
	q := &fakeSQS{sent: make(chan string, 1)}
	p := NewPublisher(q, "https://sqs.example/notify", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	p.Notify(ctx, testNotification())
	cancel() // the request finishing must not abort the enqueue

	select {
	case body := <-q.sent:
		var n domain.NewMessageNotification
		require.NoError(t, json.Unmarshal([]byte(body), &n))
		assert.Equal(t, "m1", n.MessageID)
		assert.Equal(t, "instagram", n.ReferrerPlatform)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not enqueued")
	}
}

func TestConsumer_PollOnce(t *testing.T) {
	job, err := json.Marshal(testNotification())
	require.NoError(t, err)

	q := &fakeSQS{receive: []types.Message{
		{MessageId: aws.String("a"), ReceiptHandle: aws.String("h-bad"), Body: aws.String("{not json")},
		{MessageId: aws.String("b"), ReceiptHandle: aws.String("h-good"), Body: aws.String(string(job))},
	}}
	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{"r1": {ID: "r1", PushEnabled: true}}}
	push := &fakePush{}
	subs := &fakeSubs{subs: []domain.PushSubscription{{ProfileID: "r1", Endpoint: "https://push.example/x"}}}
	d := NewDeliverer(profiles, subs, newRenderer(t), push, nil, 0, "")

	c := NewConsumer(q, d, config.SQSConfig{QueueURL: "q", MaxMessages: 10}, time.Second)
	n, err := c.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"h-bad", "h-good"}, q.deleted)
	assert.Len(t, push.payloads, 1)
}

func TestConsumer_KeepsFailedJobs(t *testing.T) {
	job, _ := json.Marshal(testNotification())
	q := &fakeSQS{receive: []types.Message{{ReceiptHandle: aws.String("h"), Body: aws.String(string(job))}}}
	d := NewDeliverer(&fakeProfiles{err: errors.New("db down")}, &fakeSubs{}, newRenderer(t), &fakePush{}, nil, 0, "")

	c := NewConsumer(q, d, config.SQSConfig{QueueURL: "q"}, time.Second)
	_, err := c.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, q.deleted)
}

func TestInline_DetachedFromRequest(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{"r1": {ID: "r1", PushEnabled: true}}}
	push := &fakePush{}
	subs := &fakeSubs{subs: []domain.PushSubscription{{ProfileID: "r1", Endpoint: "https://push.example/x"}}}
	inline := NewInline(NewDeliverer(profiles, subs, newRenderer(t), push, nil, 0, ""), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	inline.Notify(ctx, testNotification())
	cancel()

	assert.Eventually(t, func() bool {
		push.mu.Lock()
		defer push.mu.Unlock()
		return len(push.payloads) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
