package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/moorebrett0/climbcoach/internal/backend"
	"github.com/moorebrett0/climbcoach/internal/brain"
	"github.com/moorebrett0/climbcoach/internal/climber"
	"github.com/moorebrett0/climbcoach/internal/exercise"
	"github.com/moorebrett0/climbcoach/internal/load"
)

// Defaults for optional tool arguments.
const (
	DefaultSearchLimit  = 8
	DefaultSimilarLimit = 5
)

// Limits applied when shrinking results for the model.
const (
	maxListedWorkouts     = 15
	maxWorkoutNameLen     = 50
	maxListedExercises    = 5
	maxDescriptionPreview = 150
)

// Backend is the persistence service as the tools use it.
type Backend interface {
	ListWorkouts(ctx context.Context) ([]backend.Workout, error)
	TrainingLoad(ctx context.Context) (*backend.TrainingLoad, error)
	CreateWorkout(ctx context.Context, in backend.WorkoutInput) (*backend.Created, error)
	CreateTrainingSession(ctx context.Context, in backend.TrainingSessionInput) (*backend.Created, error)
}

// Completer runs a single tool-less model exchange.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Deps are the collaborators the tools dispatch to. Nil data sources make the
// matching tools report that their data is not loaded.
type Deps struct {
	Exercises *exercise.Index
	Climbers  *climber.Scorer
	Backend   Backend
	Completer Completer
	Now       func() time.Time
}

type handler func(ctx context.Context, input json.RawMessage) envelope

// Dispatcher routes tool calls to their handlers. It implements
// brain.Executor and is safe for concurrent use.
type Dispatcher struct {
	tools    []brain.Tool
	handlers map[ToolName]handler
	deps     Deps
}

// NewDispatcher wires the tools of variant v to deps.
func NewDispatcher(v Variant, deps Deps) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	d := &Dispatcher{tools: Registry(v), deps: deps}

	all := map[ToolName]handler{
		ToolGetTrainingLoad:       d.getTrainingLoad,
		ToolLookupWorkouts:        d.lookupWorkouts,
		ToolSearchExercises:       d.searchExercises,
		ToolCreateWorkout:         d.createWorkout,
		ToolCreateTrainingSession: d.createTrainingSession,
		ToolFindSimilarClimbers:   d.findSimilarClimbers,
	}
	d.handlers = make(map[ToolName]handler, len(variantTools[v]))
	for _, n := range variantTools[v] {
		d.handlers[n] = all[n]
	}
	return d
}

// Tools returns the descriptors offered to the model.
func (d *Dispatcher) Tools() []brain.Tool {
	return d.tools
}

// Invoke runs one tool and returns its JSON envelope. It never fails: unknown
// tools, bad arguments, upstream errors and panics all become error envelopes.
func (d *Dispatcher) Invoke(ctx context.Context, name string, input json.RawMessage) (out string) {
	h, found := d.handlers[ToolName(name)]
	if !found {
		slog.Warn("coach: unknown tool requested", "tool", name)
		return fail("Unknown tool: " + name).encode()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("coach: tool panicked", "tool", name, "panic", r)
			out = failf("Internal error in %s: %v", name, r).encode()
		}
	}()

	return h(ctx, input).encode()
}

// decodeArgs unmarshals tool input; empty input decodes as {}.
func decodeArgs(input json.RawMessage, dst any) error {
	if len(input) == 0 || string(input) == "null" {
		return nil
	}
	return json.Unmarshal(input, dst)
}

func (d *Dispatcher) getTrainingLoad(ctx context.Context, _ json.RawMessage) envelope {
	tl, err := d.deps.Backend.TrainingLoad(ctx)
	if errors.Is(err, backend.ErrNoTrainingData) {
		return envelope{
			"success": false,
			"message": "No training load data available. User may not have any training sessions logged yet.",
		}
	}
	if err != nil {
		return failBackend(err, "fetching training load")
	}
	return ok(envelope{
		"training_load": load.Summarize(tl),
		"optimal_range": load.OptimalRange,
	})
}

type workoutSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Date      *string `json:"date"`
	Exercises string  `json:"exercises"`
}

func (d *Dispatcher) lookupWorkouts(ctx context.Context, _ json.RawMessage) envelope {
	workouts, err := d.deps.Backend.ListWorkouts(ctx)
	if err != nil {
		return failBackend(err, "fetching workouts")
	}

	listed := workouts
	if len(listed) > maxListedWorkouts {
		listed = listed[:maxListedWorkouts]
	}
	summaries := make([]workoutSummary, 0, len(listed))
	for _, w := range listed {
		summaries = append(summaries, summarizeWorkout(w))
	}

	return ok(envelope{
		"total":    len(workouts),
		"workouts": summaries,
	})
}

func summarizeWorkout(w backend.Workout) workoutSummary {
	s := workoutSummary{ID: w.ID, Name: truncate(w.Name, maxWorkoutNameLen), Exercises: "No exercises"}
	if s.Name == "" {
		s.Name = "Unnamed"
	}
	if w.ScheduledDate != "" {
		date := truncate(w.ScheduledDate, len("2006-01-02"))
		s.Date = &date
	}

	if len(w.Exercises) > 0 {
		var names []string
		for i, ex := range w.Exercises {
			if i == maxListedExercises {
				names = append(names, fmt.Sprintf("...+%d more", len(w.Exercises)-maxListedExercises))
				break
			}
			name := ex.Name
			if name == "" {
				name = "Exercise"
			}
			names = append(names, name)
		}
		s.Exercises = strings.Join(names, ", ")
	}
	return s
}

type exerciseResult struct {
	Name        string `json:"name"`
	BodyPart    string `json:"bodypart"`
	Equipment   string `json:"equipment"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

func (d *Dispatcher) searchExercises(_ context.Context, input json.RawMessage) envelope {
	var args struct {
		Query string `json:"query"`
		Limit *int   `json:"limit"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return failf("Invalid arguments: %v", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return fail("Missing required argument: query")
	}
	if d.deps.Exercises == nil {
		return fail("Exercise database not loaded")
	}
	limit := DefaultSearchLimit
	if args.Limit != nil {
		limit = *args.Limit
	}

	found := d.deps.Exercises.Search(args.Query, limit)
	results := make([]exerciseResult, 0, len(found))
	for _, ex := range found {
		desc := ex.Description
		if utf8.RuneCountInString(desc) > maxDescriptionPreview {
			desc = truncate(desc, maxDescriptionPreview) + "..."
		}
		results = append(results, exerciseResult{
			Name:        ex.Name,
			BodyPart:    ex.BodyPart,
			Equipment:   ex.Equipment,
			Level:       ex.Level,
			Description: desc,
		})
	}

	return ok(envelope{
		"query":     args.Query,
		"count":     len(results),
		"exercises": results,
	})
}

func (d *Dispatcher) createWorkout(ctx context.Context, input json.RawMessage) envelope {
	var args struct {
		WorkoutRequest string `json:"workout_request"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return failf("Invalid arguments: %v", err)
	}
	if strings.TrimSpace(args.WorkoutRequest) == "" {
		return fail("Missing required argument: workout_request")
	}

	raw, err := d.deps.Completer.Complete(ctx, "", workoutParsePrompt(args.WorkoutRequest, d.deps.Now()))
	if err != nil {
		return failf("Error creating workout: %v", err)
	}

	var workout backend.WorkoutInput
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &workout); err != nil {
		return envelope{
			"success":      false,
			"error":        fmt.Sprintf("Failed to parse workout data: %v", err),
			"raw_response": raw,
		}
	}
	if workout.Name == "" {
		return envelope{
			"success":      false,
			"error":        "Failed to parse workout data: missing workout name",
			"raw_response": raw,
		}
	}

	created, err := d.deps.Backend.CreateWorkout(ctx, workout)
	if err != nil {
		return failBackend(err, "creating workout")
	}
	slog.Info("coach: workout created", "id", created.ID, "name", created.Name)

	return ok(envelope{
		"message": fmt.Sprintf("Workout '%s' created successfully!", created.Name),
		"workout": created.Body,
	})
}

var (
	climbStyles   = []string{"boulder", "sport", "trad"}
	climbStatuses = []string{"sent", "attempt", "project"}
)

func (d *Dispatcher) createTrainingSession(ctx context.Context, input json.RawMessage) envelope {
	var args struct {
		SessionData *backend.TrainingSessionInput `json:"session_data"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return failf("Invalid session_data: %v", err)
	}
	if args.SessionData == nil {
		return fail("Missing required argument: session_data")
	}
	session := *args.SessionData

	var missing []string
	if session.Name == "" {
		missing = append(missing, "name")
	}
	if session.ScheduledDate == "" {
		missing = append(missing, "scheduledDate")
	}
	if len(missing) > 0 {
		return fail("Missing required fields: " + strings.Join(missing, ", "))
	}
	for i, c := range session.Climbs {
		if !slices.Contains(climbStyles, c.Style) {
			return failf("climb %d: style must be one of %s", i+1, strings.Join(climbStyles, ", "))
		}
		if !slices.Contains(climbStatuses, c.Status) {
			return failf("climb %d: status must be one of %s", i+1, strings.Join(climbStatuses, ", "))
		}
	}
	if session.Climbs == nil {
		session.Climbs = []backend.Climb{}
	}
	if session.WorkoutID != nil && *session.WorkoutID == "" {
		session.WorkoutID = nil
	}

	created, err := d.deps.Backend.CreateTrainingSession(ctx, session)
	if err != nil {
		return failBackend(err, "creating training session")
	}
	slog.Info("coach: training session created", "id", created.ID, "name", created.Name)

	return ok(envelope{
		"message":   fmt.Sprintf("Training session '%s' created successfully!", created.Name),
		"sessionId": created.ID,
		"session":   created.Body,
	})
}

func (d *Dispatcher) findSimilarClimbers(_ context.Context, input json.RawMessage) envelope {
	var args struct {
		UserProfile *climber.Profile `json:"user_profile"`
		Limit       *int             `json:"limit"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return failf("Invalid arguments: %v", err)
	}
	if args.UserProfile == nil {
		return fail("Missing required argument: user_profile")
	}
	if d.deps.Climbers == nil || !d.deps.Climbers.Loaded() {
		return fail("Training data not loaded")
	}
	limit := DefaultSimilarLimit
	if args.Limit != nil {
		limit = *args.Limit
	}

	matches := d.deps.Climbers.FindSimilar(*args.UserProfile, limit)
	return ok(envelope{
		"user_profile":     args.UserProfile,
		"similar_climbers": matches,
		"count":            len(matches),
		"message":          fmt.Sprintf("Found %d climbers with similar characteristics", len(matches)),
	})
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
