package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/strongsync/internal/ingest"
	"github.com/claude/strongsync/internal/ingest/strong"
	"github.com/claude/strongsync/internal/intervals"
	"github.com/claude/strongsync/internal/models"
	"github.com/claude/strongsync/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type ingestResponse struct {
	*ingest.Result
	Workout     *models.Workout `json:"workout"`
	Description string          `json:"description"`
	ActivityURL string          `json:"activity_url,omitempty"`
}

type parseResponse struct {
	Workout        *models.Workout `json:"workout"`
	Description    string          `json:"description"`
	TotalSets      int             `json:"total_sets"`
	TotalVolumeKg  float64         `json:"total_volume_kg"`
	EstDurationSec int             `json:"est_duration_sec"`
	TrainingLoad   int             `json:"training_load"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"storage":   s.store != nil,
		"intervals": s.intervals != nil,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleStrongIngest(w http.ResponseWriter, r *http.Request) {
	text, err := readWorkoutText(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, workout, err := s.ingester.Ingest(r.Context(), text, userIDFromContext(r))
	if err != nil {
		s.log.Error("strong ingest error", "error", err)
		writeJSON(w, parseErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}

	resp := ingestResponse{
		Result:      result,
		Workout:     workout,
		Description: strong.FormatWorkoutDescription(workout),
	}

	if submit, _ := strconv.ParseBool(r.URL.Query().Get("submit")); submit {
		if s.intervals == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "intervals.icu submission is not configured"})
			return
		}
		if result.ActivityID == "" {
			act, err := s.intervals.CreateWorkoutActivity(r.Context(), workout, resp.Description)
			if err != nil {
				s.log.Error("intervals submit error", "error", err)
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
				return
			}
			result.ActivityID = act.ID.String()
			s.linkActivity(r, result)
		}
		resp.ActivityURL = intervals.ActivityURL(result.ActivityID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// linkActivity records the activity on the stored workout. Failures are logged.
func (s *Server) linkActivity(r *http.Request, result *ingest.Result) {
	if s.store == nil || result.WorkoutID == nil {
		return
	}
	if err := s.store.SetActivityID(r.Context(), *result.WorkoutID, result.ActivityID); err != nil {
		s.log.Error("failed to link workout to activity", "workout_id", *result.WorkoutID, "error", err)
	}
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	text, err := readWorkoutText(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	workout, err := s.parser.Parse(text)
	if err != nil {
		writeJSON(w, parseErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Workout:        workout,
		Description:    strong.FormatWorkoutDescription(workout),
		TotalSets:      workout.TotalSets(),
		TotalVolumeKg:  workout.TotalVolume(),
		EstDurationSec: workout.EstimateDuration(),
		TrainingLoad:   workout.EstimateTrainingLoad(),
	})
}

func (s *Server) handleQueryWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	workouts, err := s.store.QueryWorkouts(r.Context(), start, end, userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	workoutID, err := uuid.Parse(idStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	detail, err := s.store.GetWorkout(r.Context(), workoutID, userIDFromContext(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleQuerySets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	exercise := r.URL.Query().Get("exercise")
	sets, err := s.store.QueryWorkoutSets(r.Context(), start, end, userIDFromContext(r), exercise)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.store.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// readWorkoutText accepts either a raw text body or JSON {"text": "..."}.
func readWorkoutText(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", errors.New("reading body: " + err.Error())
	}

	text := string(body)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", errors.New("invalid JSON: " + err.Error())
		}
		text = req.Text
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty workout text")
	}
	return text, nil
}

// parseErrorStatus maps parse failures to 422 and anything else to 500.
func parseErrorStatus(err error) int {
	var pe *strong.ParseError
	switch {
	case errors.Is(err, strong.ErrNotStrongWorkout),
		errors.Is(err, strong.ErrNoExercises),
		errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
