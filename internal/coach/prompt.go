package coach

import (
	"fmt"
	"strings"
	"time"
)

var toolSummaries = map[ToolName]string{
	ToolGetTrainingLoad:       "get_training_load: the user's current training load and ACWR. Use it when creating workouts or sessions",
	ToolLookupWorkouts:        "lookup_workouts: the saved workouts and their IDs. Use it BEFORE creating training sessions",
	ToolSearchExercises:       "search_exercises: find exercises in the climbing exercise database",
	ToolCreateWorkout:         "create_workout: create and save a workout",
	ToolCreateTrainingSession: "create_training_session: create and save a training session with climbs, optionally linked to a workout",
	ToolFindSimilarClimbers:   "find_similar_climbers: find climbers with similar stats. Only when the user gives their own stats",
}

// SystemPrompt is the fixed instruction sent with every question.
func SystemPrompt(v Variant, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are an expert climbing coach with access to exercise and climber datasets and specialized tools.\n\n")
	fmt.Fprintf(&b, "Today is %s.\n\n", now.Format("Monday, January 2, 2006"))

	b.WriteString("Your available tools:\n")
	for _, n := range variantTools[v] {
		fmt.Fprintf(&b, "- %s\n", toolSummaries[n])
	}

	if v == VariantFull {
		b.WriteString(`
When a user asks to create a training session:
1. Use get_training_load FIRST to check their current load and ACWR
2. Use lookup_workouts to find an appropriate existing workout to link
3. Use create_training_session with a valid workoutId from the lookup results
4. Adjust volume and intensity based on their ACWR to prevent overtraining

When a user asks to create or save a workout:
1. Use get_training_load FIRST to check their current load and ACWR
2. Use create_workout, adjusting volume and intensity to their training load

When a user asks to log climbs:
1. Use lookup_workouts first to find an appropriate workout
2. Then use create_training_session
`)
	} else {
		b.WriteString(`
Search for relevant exercises before building a workout, then use create_workout to save it when asked.
`)
	}

	b.WriteString("\nGive concise, data-driven coaching advice based on the tools and data available.")
	return b.String()
}
