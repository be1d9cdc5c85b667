package intervals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/strongsync/internal/models"
)

// DefaultBaseURL is the Intervals.icu REST API root.
const DefaultBaseURL = "https://intervals.icu/api/v1"

const (
	activityType = "WeightTraining"
	localLayout  = "2006-01-02T15:04:05"
	maxAttempts  = 3
	userAgent    = "strongsync/1.0"
)

// Activity is the subset of the created activity we use.
type Activity struct {
	ID   ActivityID `json:"id"`
	Name string     `json:"name"`
	Type string     `json:"type"`
}

// ActivityID accepts both the string ("i123") and numeric ids the API returns.
type ActivityID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ActivityID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ActivityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("activity id: %w", err)
	}
	*id = ActivityID(n.String())
	return nil
}

// activityRequest is the manual-activity payload.
type activityRequest struct {
	StartDateLocal  string `json:"start_date_local"`
	Type            string `json:"type"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	MovingTime      int    `json:"moving_time"`
	ICUTrainingLoad int    `json:"icu_training_load"`
}

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("intervals.icu request failed (status %d): %s", e.StatusCode, e.Body)
}

// Client talks to the Intervals.icu API for one athlete.
type Client struct {
	baseURL    string
	apiKey     string
	athleteID  string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates an Intervals.icu client. An empty baseURL means DefaultBaseURL.
func NewClient(baseURL, apiKey, athleteID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		athleteID: athleteID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: time.Second,
	}
}

// CreateWorkoutActivity creates a manual WeightTraining activity for w.
// Retries up to 3 times with exponential backoff on network errors and 5xx.
func (c *Client) CreateWorkoutActivity(ctx context.Context, w *models.Workout, description string) (*Activity, error) {
	payload := activityRequest{
		StartDateLocal:  w.Date.Format(localLayout),
		Type:            activityType,
		Name:            w.Name,
		Description:     description,
		MovingTime:      w.EstimateDuration(),
		ICUTrainingLoad: w.EstimateTrainingLoad(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling activity: %w", err)
	}

	url := fmt.Sprintf("%s/athlete/%s/activities/manual", c.baseURL, c.athleteID)

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		body, err := c.do(ctx, http.MethodPost, url, data)
		if err != nil {
			lastErr = err
			var se *StatusError
			if errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError {
				return nil, err
			}
			continue
		}

		var act Activity
		if err := json.Unmarshal(body, &act); err != nil {
			return nil, fmt.Errorf("decoding activity: %w", err)
		}
		if act.ID == "" {
			return nil, fmt.Errorf("activity response has no id: %s", body)
		}
		return &act, nil
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// TestConnection checks the credentials by fetching the athlete record.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/athlete/%s", c.baseURL, c.athleteID), nil); err != nil {
		return fmt.Errorf("testing connection: %w", err)
	}
	return nil
}

// ActivityURL is the web page for an activity.
func ActivityURL(id string) string {
	return "https://intervals.icu/activities/" + id
}

func (c *Client) do(ctx context.Context, method, url string, data []byte) ([]byte, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth("API_KEY", c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// String renders the id for display.
func (id ActivityID) String() string { return string(id) }
