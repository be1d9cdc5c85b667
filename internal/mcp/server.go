package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/strongsync/internal/ingest/strong"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server. The parse tool is always registered; the
// workout tools and resources only when ds is non-nil.
func New(ds DataSource, parser *strong.Parser, version string, log *slog.Logger) *server.MCPServer {
	if parser == nil {
		parser = strong.NewParser(log, nil)
	}

	s := server.NewMCPServer("StrongSync", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("StrongSync strength training server. Parse Strong app workout exports and query stored workouts and sets. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, parser: parser, log: log}

	s.AddTools(server.ServerTool{Tool: toolParseStrongWorkout, Handler: h.parseStrongWorkout})

	if ds != nil {
		s.AddTools(
			server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
			server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
			server.ServerTool{Tool: toolGetWorkoutSets, Handler: h.getWorkoutSets},
		)
		s.AddResources(
			server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		)
	}

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds     DataSource
	parser *strong.Parser
	log    *slog.Logger
}
