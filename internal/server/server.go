package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/strongsync/internal/ingest"
	"github.com/claude/strongsync/internal/ingest/strong"
	"github.com/claude/strongsync/internal/intervals"
	"github.com/claude/strongsync/internal/models"
	"github.com/claude/strongsync/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the storage the query endpoints read from. *storage.DB satisfies it.
type Store interface {
	UserResolver
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	SetActivityID(ctx context.Context, workoutID uuid.UUID, activityID string) error
}

// Ingester gates, parses and optionally stores a Strong export.
type Ingester interface {
	Ingest(ctx context.Context, text string, userID int) (*ingest.Result, *models.Workout, error)
}

// Submitter creates Intervals.icu activities.
type Submitter interface {
	CreateWorkoutActivity(ctx context.Context, w *models.Workout, description string) (*intervals.Activity, error)
}

// Deps are the server's collaborators. Store, Intervals, WhoIs and MCP may be nil.
type Deps struct {
	Store     Store
	Ingester  Ingester
	Parser    *strong.Parser
	Intervals Submitter
	WhoIs     WhoIser
	MCP       http.Handler
	APIKey    string
	Log       *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     Store
	ingester  Ingester
	parser    *strong.Parser
	intervals Submitter
	whois     WhoIser
	mcp       http.Handler
	log       *slog.Logger
	apiKey    string
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	parser := d.Parser
	if parser == nil {
		parser = strong.NewParser(log, nil)
	}
	s := &Server{
		store:     d.Store,
		ingester:  d.Ingester,
		parser:    parser,
		intervals: d.Intervals,
		whois:     d.WhoIs,
		mcp:       d.MCP,
		log:       log,
		apiKey:    d.APIKey,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	// Ingest endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(StaticIdentity(UserInfo{Login: storage.APILogin, DisplayName: "API"}, s.users(), s.log))
		r.Post("/api/v1/ingest/strong", s.handleStrongIngest)
		r.Post("/api/v1/parse", s.handleParse)
	})

	// Query endpoints (tailnet identity, or the local user in dev)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identity())
		r.Get("/api/v1/me", s.handleMe)
		if s.store != nil {
			r.Get("/api/v1/workouts", s.handleQueryWorkouts)
			r.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
			r.Get("/api/v1/sets", s.handleQuerySets)
			r.Get("/api/v1/imports", s.handleImportLogs)
		}
		if s.mcp != nil {
			r.Handle("/mcp", s.mcp)
		}
	})
}

func (s *Server) identity() func(http.Handler) http.Handler {
	if s.whois != nil {
		return TailscaleIdentity(s.whois, s.users(), s.log)
	}
	if s.store == nil {
		return DevIdentity
	}
	return StaticIdentity(localUser, s.store, s.log)
}

// users avoids handing a typed-nil Store to the identity middleware.
func (s *Server) users() UserResolver {
	if s.store == nil {
		return nil
	}
	return s.store
}
