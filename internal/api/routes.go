package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/whisperbox/internal/analytics"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/service/inbox"
	"github.com/ignite/whisperbox/internal/service/intake"
	"github.com/ignite/whisperbox/internal/service/profile"
	"github.com/ignite/whisperbox/internal/service/suspicion"
	"github.com/ignite/whisperbox/internal/service/visits"
)

// Sender accepts anonymous messages.
type Sender interface {
	Send(ctx context.Context, req intake.SendRequest) (*intake.SendResult, error)
}

// Tracker records profile visits.
type Tracker interface {
	Track(ctx context.Context, req visits.TrackRequest) (*visits.TrackResult, error)
}

// Inbox is the recipient's message store.
type Inbox interface {
	List(ctx context.Context, recipientID string, q inbox.ListQuery) (*inbox.Page, error)
	Get(ctx context.Context, recipientID, id string) (*domain.Message, error)
	MarkRead(ctx context.Context, recipientID, id string) error
	Flag(ctx context.Context, recipientID, id string, flagged bool) error
	Delete(ctx context.Context, recipientID, id string) error
	Suspicion(ctx context.Context, recipientID, id string) (suspicion.Result, error)
}

// Blocks manages the recipient's block list.
type Blocks interface {
	Block(ctx context.Context, recipientID, fp string, reason domain.BlockReason) (*domain.BlockEntry, error)
	Unblock(ctx context.Context, recipientID, fp string) error
	UnblockByID(ctx context.Context, recipientID, id string) error
	List(ctx context.Context, recipientID string) ([]domain.BlockEntry, error)
}

// Profiles manages the recipient's own profile and push endpoints.
type Profiles interface {
	ByID(ctx context.Context, id string) (*domain.Profile, error)
	SetPreferences(ctx context.Context, profileID string, prefs profile.Preferences) error
	Subscribe(ctx context.Context, profileID string, sub domain.PushSubscription) (*domain.PushSubscription, error)
	Unsubscribe(ctx context.Context, profileID, endpoint string) error
}

// VisitStats reads the hourly visit counters.
type VisitStats interface {
	Summary(ctx context.Context, profileID string, hours int) (analytics.Summary, error)
}

// Authenticator guards recipient-only routes and puts the caller on the context.
type Authenticator interface {
	RequireAuth(next http.Handler) http.Handler
}

// Deps wires the router. Analytics and Health may be nil.
type Deps struct {
	Sender         Sender
	Tracker        Tracker
	Inbox          Inbox
	Blocks         Blocks
	Profiles       Profiles
	Analytics      VisitStats
	Auth           Authenticator
	Health         *HealthChecker
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	sender    Sender
	tracker   Tracker
	inbox     Inbox
	blocks    Blocks
	profiles  Profiles
	analytics VisitStats
}

// NewRouter configures all routes.
func NewRouter(d Deps) *chi.Mux {
	h := &Handlers{
		sender:    d.Sender,
		tracker:   d.Tracker,
		inbox:     d.Inbox,
		blocks:    d.Blocks,
		profiles:  d.Profiles,
		analytics: d.Analytics,
	}

	r := chi.NewRouter()

	// No RealIP: handlers resolve the client address with fingerprint.ClientIP.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Health != nil {
		r.Get("/health", d.Health.HandleHealth)
		r.Get("/health/live", d.Health.HandleLiveness)
		r.Get("/health/ready", d.Health.HandleReadiness)
	}

	// Public, anonymous endpoints
	r.Post("/messages/send", h.SendMessage)
	r.Post("/visits/track", h.TrackVisit)

	// Recipient-only
	r.Group(func(r chi.Router) {
		r.Use(d.Auth.RequireAuth)
		r.Post("/block/add", h.AddBlock)
		r.Delete("/block/remove", h.RemoveBlock)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Auth.RequireAuth)

		r.Get("/profile", h.GetProfile)

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", h.ListMessages)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/read", h.MarkRead)
				r.Post("/flag", h.FlagMessage)
				r.Delete("/", h.DeleteMessage)
				r.Get("/suspicion", h.MessageSuspicion)
			})
		})

		r.Route("/blocks", func(r chi.Router) {
			r.Get("/", h.ListBlocks)
			r.Post("/", h.AddBlock)
			r.Delete("/{id}", h.RemoveBlockByID)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Put("/preferences", h.UpdatePreferences)
			r.Post("/subscriptions", h.Subscribe)
			r.Delete("/subscriptions", h.Unsubscribe)
		})

		r.Get("/analytics/visits", h.VisitAnalytics)
	})

	return r
}
