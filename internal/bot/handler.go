package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/claude/strongsync/internal/ingest"
	"github.com/claude/strongsync/internal/ingest/strong"
	"github.com/claude/strongsync/internal/intervals"
	"github.com/claude/strongsync/internal/models"
	"github.com/claude/strongsync/internal/storage"
	"github.com/google/uuid"
)

const (
	msgStart = "Welcome to the Strong → Intervals.icu Bot!\n\n" +
		"Simply share your workout from the Strong app to this chat, " +
		"and I'll automatically create it as a completed activity in your Intervals.icu account.\n\n" +
		"Commands:\n" +
		"/start - Show this welcome message\n" +
		"/help - Get help\n" +
		"/test - Test the connection to Intervals.icu"

	msgHelp = "*How to use this bot:*\n\n" +
		"1. Open the Strong app on your phone\n" +
		"2. Go to your completed workout\n" +
		"3. Tap the share button (three dots)\n" +
		"4. Select 'Share' and choose Telegram\n" +
		"5. Send it to this bot\n\n" +
		"The bot will automatically:\n" +
		"- Parse your workout data\n" +
		"- Create an activity in your Intervals.icu account\n" +
		"- Send you a confirmation with a link\n\n" +
		"*Supported formats:*\n" +
		"- Exercises with sets, reps, and weights\n" +
		"- Bodyweight exercises\n" +
		"- Timed exercises (e.g., stretching)\n" +
		"- Warmup sets"

	msgTesting      = "Testing connection to Intervals.icu..."
	msgTestOK       = "✅ Connection successful! The bot is ready to sync your workouts."
	msgTestFailed   = "❌ Connection failed. Please check your API credentials and try again."
	msgNotStrong    = "This doesn't look like a Strong app workout. Please share a workout directly from the Strong app.\n\nUse /help for instructions."
	msgParsing      = "🏋️ Parsing your workout..."
	msgParseFailed  = "❌ Could not parse the workout. Please make sure you're sharing a complete workout from the Strong app."
	msgSubmitFailed = "❌ Failed to create the workout in Intervals.icu. Please check the logs or try again later."
	msgStoreFailed  = "❌ Could not save the workout right now. Please try again later."
	msgUnauthorized = "Sorry, this bot is private."
	msgUnknown      = "Unknown command. Use /help for instructions."
)

// Message is an incoming chat message, reduced to what the handler needs.
type Message struct {
	ChatID      int64
	UserID      int64
	DisplayName string
	Text        string
	Command     string
}

// Sender delivers replies to a chat.
type Sender interface {
	Send(chatID int64, text string, markdown bool) error
}

// Ingester gates, parses and optionally stores a Strong export.
type Ingester interface {
	Ingest(ctx context.Context, text string, userID int) (*ingest.Result, *models.Workout, error)
}

// ActivityCreator creates activities in Intervals.icu.
type ActivityCreator interface {
	CreateWorkoutActivity(ctx context.Context, w *models.Workout, description string) (*intervals.Activity, error)
	TestConnection(ctx context.Context) error
}

// WorkoutStore resolves chat users and links stored workouts to activities.
type WorkoutStore interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	SetActivityID(ctx context.Context, workoutID uuid.UUID, activityID string) error
}

// SubmissionState remembers which exports were already submitted.
type SubmissionState interface {
	Lookup(hash string) (string, bool, error)
	MarkSubmitted(hash, activityID string) error
}

// Deps are the handler's collaborators. Store and State may be nil.
type Deps struct {
	Sender       Sender
	Ingester     Ingester
	Intervals    ActivityCreator
	Store        WorkoutStore
	State        SubmissionState
	AllowedUsers []int64
	Log          *slog.Logger
}

// Handler runs the command and workout flows for one message at a time.
// It is safe for concurrent use when its collaborators are.
type Handler struct {
	send      Sender
	ingester  Ingester
	intervals ActivityCreator
	store     WorkoutStore
	state     SubmissionState
	allowed   map[int64]bool
	log       *slog.Logger
}

// NewHandler creates a message handler.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		send:      d.Sender,
		ingester:  d.Ingester,
		intervals: d.Intervals,
		store:     d.Store,
		state:     d.State,
		log:       log,
	}
	if len(d.AllowedUsers) > 0 {
		h.allowed = make(map[int64]bool, len(d.AllowedUsers))
		for _, id := range d.AllowedUsers {
			h.allowed[id] = true
		}
	}
	return h
}

// Handle processes one message.
func (h *Handler) Handle(ctx context.Context, m Message) {
	if h.allowed != nil && !h.allowed[m.UserID] {
		h.log.Warn("message from unauthorized user", "user_id", m.UserID)
		h.reply(m.ChatID, msgUnauthorized, false)
		return
	}

	switch m.Command {
	case "":
		h.handleWorkout(ctx, m)
	case "start":
		h.reply(m.ChatID, msgStart, false)
		h.log.Info("user started the bot", "user_id", m.UserID)
	case "help":
		h.reply(m.ChatID, msgHelp, true)
		h.log.Info("user requested help", "user_id", m.UserID)
	case "test":
		h.handleTest(ctx, m)
	default:
		h.reply(m.ChatID, msgUnknown, false)
	}
}

func (h *Handler) handleTest(ctx context.Context, m Message) {
	h.reply(m.ChatID, msgTesting, false)
	if err := h.intervals.TestConnection(ctx); err != nil {
		h.log.Error("intervals connection test failed", "error", err)
		h.reply(m.ChatID, msgTestFailed, false)
		return
	}
	h.reply(m.ChatID, msgTestOK, false)
	h.log.Info("user ran connection test", "user_id", m.UserID)
}

func (h *Handler) handleWorkout(ctx context.Context, m Message) {
	h.log.Info("received message", "user_id", m.UserID)

	if !strong.IsStrongWorkout(m.Text) {
		h.reply(m.ChatID, msgNotStrong, false)
		return
	}
	h.reply(m.ChatID, msgParsing, false)

	userID, err := h.resolveUser(ctx, m)
	if err != nil {
		h.log.Error("failed to resolve user", "user_id", m.UserID, "error", err)
		h.reply(m.ChatID, msgStoreFailed, false)
		return
	}
	result, w, err := h.ingester.Ingest(ctx, m.Text, userID)
	if err != nil {
		if isParseFailure(err) {
			h.log.Warn("failed to parse workout", "user_id", m.UserID, "error", err)
			h.reply(m.ChatID, msgParseFailed, false)
			return
		}
		h.log.Error("failed to ingest workout", "user_id", m.UserID, "error", err)
		h.reply(m.ChatID, msgStoreFailed, false)
		return
	}

	h.reply(m.ChatID, fmt.Sprintf(
		"✅ Workout parsed successfully!\n📝 %s\n📅 %s\n💪 %d exercises, %d sets\n\nCreating activity in Intervals.icu...",
		w.Name, w.Date.Format("2006-01-02 15:04"), len(w.Exercises), w.TotalSets(),
	), false)

	if id, ok := h.previousSubmission(result); ok {
		h.log.Info("workout already submitted", "user_id", m.UserID, "activity_id", id)
		h.reply(m.ChatID, "ℹ️ This workout was already submitted.\n\nView it on Intervals.icu:\n"+intervals.ActivityURL(id), false)
		return
	}

	act, err := h.intervals.CreateWorkoutActivity(ctx, w, strong.FormatWorkoutDescription(w))
	if err != nil {
		h.log.Error("failed to create workout activity", "user_id", m.UserID, "error", err)
		h.reply(m.ChatID, msgSubmitFailed, false)
		return
	}
	activityID := act.ID.String()

	h.reply(m.ChatID, "✅ *Workout created successfully!*\n\nView it on Intervals.icu:\n"+intervals.ActivityURL(activityID), true)
	h.log.Info("created workout activity", "user_id", m.UserID, "activity_id", activityID)

	h.recordSubmission(ctx, result, activityID)
}

// resolveUser maps the chat user to a storage user. Returns 0 without storage.
func (h *Handler) resolveUser(ctx context.Context, m Message) (int, error) {
	if h.store == nil {
		return 0, nil
	}
	uid, err := h.store.GetOrCreateUser(ctx, storage.TelegramLogin(m.UserID), m.DisplayName)
	if err != nil {
		return 0, fmt.Errorf("resolving telegram user %d: %w", m.UserID, err)
	}
	return uid, nil
}

// isParseFailure reports whether err came from the export text rather than storage.
func isParseFailure(err error) bool {
	var pe *strong.ParseError
	return errors.Is(err, strong.ErrNotStrongWorkout) ||
		errors.Is(err, strong.ErrNoExercises) ||
		errors.As(err, &pe)
}

// previousSubmission finds an activity already created for the same export,
// first in the state DB and then on the stored workout.
func (h *Handler) previousSubmission(result *ingest.Result) (string, bool) {
	if h.state == nil {
		return result.ActivityID, result.ActivityID != ""
	}
	id, ok, err := h.state.Lookup(result.SourceHash)
	if err != nil {
		h.log.Warn("submission lookup failed", "error", err)
		return "", false
	}
	return id, ok
}

func (h *Handler) recordSubmission(ctx context.Context, result *ingest.Result, activityID string) {
	if h.store != nil && result.WorkoutID != nil {
		if err := h.store.SetActivityID(ctx, *result.WorkoutID, activityID); err != nil {
			h.log.Error("failed to link workout to activity", "workout_id", *result.WorkoutID, "error", err)
		}
	}
	if h.state != nil {
		if err := h.state.MarkSubmitted(result.SourceHash, activityID); err != nil {
			h.log.Error("failed to record submission", "error", err)
		}
	}
}

func (h *Handler) reply(chatID int64, text string, markdown bool) {
	if err := h.send.Send(chatID, strings.TrimSpace(text), markdown); err != nil {
		h.log.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}
