// Package backend is a thin client for the workout/training REST service that
// persists everything the coach creates.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoTrainingData is returned by TrainingLoad when the service has nothing
// to report, usually because no sessions are logged yet.
var ErrNoTrainingData = errors.New("no training load data available")

// StatusError is a non-2xx response. Message is the service's "error" field,
// or a generic description of the failed operation.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// WorkoutExercise is one exercise inside a workout.
type WorkoutExercise struct {
	Name     string `json:"name"`
	Sets     int    `json:"sets"`
	Reps     *int   `json:"reps"`
	Duration *int   `json:"duration"` // seconds
	Rest     *int   `json:"rest"`     // seconds
}

// WorkoutInput is the body of POST /api/workouts.
type WorkoutInput struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	UserID        *string           `json:"userId"`
	ScheduledDate *string           `json:"scheduledDate"` // ISO-8601 or null
	Exercises     []WorkoutExercise `json:"exercises"`
}

// Workout is a stored workout as listed by GET /api/workouts.
type Workout struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	ScheduledDate string            `json:"scheduledDate,omitempty"`
	Exercises     []WorkoutExercise `json:"exercises,omitempty"`
}

// Climb is one climb logged in a training session.
type Climb struct {
	Name     string `json:"name"`
	Grade    int    `json:"grade"`
	Style    string `json:"style"`  // boulder, sport or trad
	Status   string `json:"status"` // sent, attempt or project
	Attempts int    `json:"attempts"`
	Notes    string `json:"notes,omitempty"`
}

// TrainingSessionInput is the body of POST /api/training.
type TrainingSessionInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	ScheduledDate string  `json:"scheduledDate"`
	WorkoutID     *string `json:"workoutId"`
	Climbs        []Climb `json:"climbs"`
}

// TrainingLoad is the service's workload summary. The service computes ACWR;
// we only read it.
type TrainingLoad struct {
	CurrentACWR        *float64        `json:"currentACWR"`
	AcuteLoad          *float64        `json:"acuteLoad"`
	ChronicLoad        *float64        `json:"chronicLoad"`
	MaxGrade           *float64        `json:"maxGrade"`
	RecentSessionCount int             `json:"recentSessionCount"`
	AverageSessionLoad float64         `json:"averageSessionLoad"`
	TotalLoad          float64         `json:"totalLoad"`
	RecentSessions     json.RawMessage `json:"recentSessions,omitempty"`
}

// Created is a record returned by a successful POST. Body is the full
// response so callers can pass it through untouched.
type Created struct {
	ID   string
	Name string
	Body json.RawMessage
}

// Client talks to the persistence service. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ListWorkouts returns every stored workout.
func (c *Client) ListWorkouts(ctx context.Context) ([]Workout, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/workouts", nil, "Failed to fetch workouts")
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	var workouts []Workout
	if err := json.Unmarshal(data, &workouts); err != nil {
		return nil, fmt.Errorf("unmarshal workouts: %w", err)
	}
	return workouts, nil
}

// TrainingLoad fetches the current workload summary. It returns
// ErrNoTrainingData when the service reports nothing.
func (c *Client) TrainingLoad(ctx context.Context) (*TrainingLoad, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/training-load", nil, "Failed to fetch training load data from API")
	if err != nil {
		return nil, fmt.Errorf("training load: %w", err)
	}

	var result struct {
		Success      bool          `json:"success"`
		TrainingLoad *TrainingLoad `json:"trainingLoad"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal training load: %w", err)
	}
	if !result.Success || result.TrainingLoad == nil {
		return nil, ErrNoTrainingData
	}
	return result.TrainingLoad, nil
}

// CreateWorkout stores a new workout.
func (c *Client) CreateWorkout(ctx context.Context, in WorkoutInput) (*Created, error) {
	created, err := c.create(ctx, "/api/workouts", in, "Failed to create workout")
	if err != nil {
		return nil, fmt.Errorf("create workout: %w", err)
	}
	return created, nil
}

// CreateTrainingSession stores a new training session.
func (c *Client) CreateTrainingSession(ctx context.Context, in TrainingSessionInput) (*Created, error) {
	created, err := c.create(ctx, "/api/training", in, "Failed to create training session")
	if err != nil {
		return nil, fmt.Errorf("create training session: %w", err)
	}
	return created, nil
}

func (c *Client) create(ctx context.Context, path string, in any, generic string) (*Created, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, path, body, generic)
	if err != nil {
		return nil, err
	}

	var head struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &Created{ID: head.ID, Name: head.Name, Body: json.RawMessage(data)}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, generic string) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data, generic)}
	}
	return data, nil
}

// errorMessage extracts {"error": "..."} from a failed response body.
func errorMessage(data []byte, generic string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return generic
}
