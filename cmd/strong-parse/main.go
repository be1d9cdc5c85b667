package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/claude/strongsync/internal/config"
	"github.com/claude/strongsync/internal/ingest/strong"
	"github.com/claude/strongsync/internal/intervals"
	"github.com/claude/strongsync/internal/models"
	"github.com/claude/strongsync/internal/state"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type jsonOutput struct {
	Workout        *models.Workout `json:"workout"`
	Description    string          `json:"description"`
	TotalSets      int             `json:"total_sets"`
	TotalVolumeKg  float64         `json:"total_volume_kg"`
	EstDurationSec int             `json:"est_duration_sec"`
	TrainingLoad   int             `json:"training_load"`
	ActivityURL    string          `json:"activity_url,omitempty"`
}

func main() {
	asJSON := flag.Bool("json", false, "print the parsed workout as JSON")
	submit := flag.Bool("submit", false, "create the activity in Intervals.icu (needs -config)")
	configPath := flag.String("config", "config.yaml", "path to config file (used with -submit)")
	verbose := flag.Bool("v", false, "log parser decisions to stderr")
	version := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: strong-parse [-json] [-submit -config FILE] [workout.txt]\n\nReads stdin when no file is given.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Println("strong-parse", Version)
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	text, err := readInput(flag.Arg(0))
	if err != nil {
		log.Error("failed to read input", "error", err)
		os.Exit(1)
	}

	if !strong.IsStrongWorkout(text) {
		log.Warn("input does not look like a Strong workout, parsing anyway")
	}

	w, err := strong.NewParser(log, nil).Parse(text)
	if err != nil {
		log.Error("failed to parse workout", "error", err)
		os.Exit(1)
	}
	description := strong.FormatWorkoutDescription(w)

	var activityURL string
	if *submit {
		activityURL, err = submitWorkout(*configPath, text, w, description, log)
		if err != nil {
			log.Error("failed to submit workout", "error", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonOutput{
			Workout:        w,
			Description:    description,
			TotalSets:      w.TotalSets(),
			TotalVolumeKg:  w.TotalVolume(),
			EstDurationSec: w.EstimateDuration(),
			TrainingLoad:   w.EstimateTrainingLoad(),
			ActivityURL:    activityURL,
		}); err != nil {
			log.Error("failed to write JSON", "error", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("%s\n%s\n\n%s\n", w.Name, w.Date.Format("2006-01-02 15:04"), description)
	if activityURL != "" {
		fmt.Printf("\n%s\n", activityURL)
	}
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// submitWorkout creates the activity unless the same export was already submitted.
func submitWorkout(configPath, text string, w *models.Workout, description string, log *slog.Logger) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}

	st, err := state.Open(cfg.State.Dir)
	if err != nil {
		return "", err
	}
	defer st.Close()

	hash := state.HashText(text)
	if id, ok, err := st.Lookup(hash); err != nil {
		return "", err
	} else if ok {
		log.Warn("workout already submitted", "activity_id", id)
		return intervals.ActivityURL(id), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	icu := intervals.NewClient(cfg.Intervals.BaseURL, cfg.Intervals.APIKey, cfg.Intervals.AthleteID)
	act, err := icu.CreateWorkoutActivity(ctx, w, description)
	if err != nil {
		return "", err
	}
	if err := st.MarkSubmitted(hash, act.ID.String()); err != nil {
		log.Warn("failed to record submission", "error", err)
	}
	return intervals.ActivityURL(act.ID.String()), nil
}
