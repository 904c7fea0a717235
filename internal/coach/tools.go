package coach

import (
	"fmt"

	"github.com/moorebrett0/climbcoach/internal/brain"
)

// Variant selects which tools a coach exposes.
type Variant string

const (
	// VariantFull exposes every tool.
	VariantFull Variant = "full"
	// VariantSimple only searches exercises and creates workouts.
	VariantSimple Variant = "simple"
)

// ParseVariant validates a configured variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantFull, VariantSimple:
		return v, nil
	default:
		return "", fmt.Errorf("unknown coach variant %q", s)
	}
}

// ToolName identifies one tool. The set is closed; anything else a model asks
// for is answered with an "Unknown tool" envelope.
type ToolName string

const (
	ToolGetTrainingLoad       ToolName = "get_training_load"
	ToolLookupWorkouts        ToolName = "lookup_workouts"
	ToolSearchExercises       ToolName = "search_exercises"
	ToolCreateWorkout         ToolName = "create_workout"
	ToolCreateTrainingSession ToolName = "create_training_session"
	ToolFindSimilarClimbers   ToolName = "find_similar_climbers"
)

var variantTools = map[Variant][]ToolName{
	VariantFull: {
		ToolGetTrainingLoad,
		ToolLookupWorkouts,
		ToolSearchExercises,
		ToolCreateWorkout,
		ToolCreateTrainingSession,
		ToolFindSimilarClimbers,
	},
	VariantSimple: {
		ToolSearchExercises,
		ToolCreateWorkout,
	},
}

// Registry returns the tool descriptors for a variant, in a stable order.
func Registry(v Variant) []brain.Tool {
	names := variantTools[v]
	out := make([]brain.Tool, 0, len(names))
	for _, n := range names {
		out = append(out, descriptors[n])
	}
	return out
}

func obj(required []string, props map[string]*brain.Schema) *brain.Schema {
	if props == nil {
		props = map[string]*brain.Schema{}
	}
	return &brain.Schema{Type: "object", Properties: props, Required: required}
}

func prop(typ, desc string) *brain.Schema {
	return &brain.Schema{Type: typ, Description: desc}
}

var descriptors = map[ToolName]brain.Tool{
	ToolGetTrainingLoad: {
		Name: string(ToolGetTrainingLoad),
		Description: "Get the user's current training load: acute:chronic workload ratio (ACWR) with an interpretation, " +
			"7-day and 42-day load, max grade and recent sessions. Call this BEFORE creating a workout or training session " +
			"so volume and intensity can be adjusted to the user's load.",
		Schema: obj(nil, nil),
	},
	ToolLookupWorkouts: {
		Name: string(ToolLookupWorkouts),
		Description: "Get a list of the workouts saved in the database with their IDs. " +
			"Use this to find a workout ID before creating a training session.",
		Schema: obj(nil, nil),
	},
	ToolSearchExercises: {
		Name: string(ToolSearchExercises),
		Description: "Search the database of climbing-relevant exercises. Each exercise has a name, description, " +
			"bodypart (forearms, shoulders, back, core, abs, lats, biceps, chest, triceps), equipment, level, type and rating. " +
			"The query is matched word by word against all fields, so use keywords such as body parts (forearms, core), " +
			"equipment (hangboard, rings, weights) or goals (finger strength, power endurance).",
		Schema: obj([]string{"query"}, map[string]*brain.Schema{
			"query": prop("string", "Search keywords, e.g. \"forearms hangboard\" or \"core strength\""),
			"limit": prop("integer", fmt.Sprintf("Maximum number of exercises to return (default: %d)", DefaultSearchLimit)),
		}),
	},
	ToolCreateWorkout: {
		Name: string(ToolCreateWorkout),
		Description: "Create and SAVE a workout to the database. Use only when the user wants a workout plan created and saved.",
		Schema: obj([]string{"workout_request"}, map[string]*brain.Schema{
			"workout_request": prop("string",
				"Full description of the workout including name, exercises with sets/reps/duration, and optional scheduled date. "+
					"Example: 'Create a workout called Finger Strength scheduled for October 15 with hangboard training: "+
					"5 sets of 10 second hangs with 3 minute rest'"),
		}),
	},
	ToolCreateTrainingSession: {
		Name: string(ToolCreateTrainingSession),
		Description: "Create and SAVE a training session with the climbs done in it, optionally linked to an existing workout " +
			"(use lookup_workouts for valid IDs). Convert V-grades to numbers (V0=0, V4=4) and dates to ISO 8601.",
		Schema: obj([]string{"session_data"}, map[string]*brain.Schema{
			"session_data": obj([]string{"name", "scheduledDate"}, map[string]*brain.Schema{
				"name":          prop("string", "Session name"),
				"description":   prop("string", "Brief description"),
				"scheduledDate": prop("string", "ISO 8601 date-time, e.g. 2025-12-01T00:00:00.000Z"),
				"workoutId":     prop("string", "ID of a workout from lookup_workouts; omit if none"),
				"climbs": {
					Type:        "array",
					Description: "Climbs done in the session",
					Items: obj([]string{"name", "grade", "style", "status"}, map[string]*brain.Schema{
						"name":     prop("string", "Climb name"),
						"grade":    prop("integer", "Numeric V-grade"),
						"style":    {Type: "string", Enum: []string{"boulder", "sport", "trad"}},
						"status":   {Type: "string", Enum: []string{"sent", "attempt", "project"}},
						"attempts": prop("integer", "Number of attempts"),
						"notes":    prop("string", "Optional notes"),
					}),
				},
			}),
		}),
	},
	ToolFindSimilarClimbers: {
		Name: string(ToolFindSimilarClimbers),
		Description: "Find climbers with similar physical traits and climbing ability in the training database. " +
			"ONLY use this when the user states their own physical stats or climbing level " +
			"(e.g. \"I'm 5'10\" and climb V5\", \"I weigh 165 lbs\"). " +
			"Do NOT use it for general advice, creating workouts or sessions, or looking up exercises.",
		Schema: obj([]string{"user_profile"}, map[string]*brain.Schema{
			"user_profile": obj(nil, map[string]*brain.Schema{
				"height":           prop("number", "Height, in the same unit as the database (inches or cm)"),
				"weight":           prop("number", "Weight, in the same unit as the database (lbs or kg)"),
				"climbing_grade":   prop("string", "Current climbing grade, e.g. V5, 5.12a, 7a"),
				"experience_level": prop("string", "Beginner, Intermediate, Advanced or Elite"),
			}),
			"limit": prop("integer", fmt.Sprintf("Maximum number of climbers to return (default: %d)", DefaultSimilarLimit)),
		}),
	},
}
