package coach

import (
	"fmt"
	"strings"
	"time"
)

// StripCodeFence removes the markdown fence models like to wrap JSON in:
// a leading "```json" or "```", and a trailing "```".
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	}
	if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// workoutParsePrompt asks the model to turn a natural-language request into
// the body of POST /api/workouts.
func workoutParsePrompt(request string, now time.Time) string {
	return fmt.Sprintf(`Parse this workout request into JSON format:
{
  "name": "workout name",
  "description": "brief description",
  "userId": null,
  "scheduledDate": "ISO 8601 date or null",
  "exercises": [
    {
      "name": "exercise name",
      "sets": number,
      "reps": number or null,
      "duration": seconds or null,
      "rest": seconds or null
    }
  ]
}

Today is %s. Convert any mentioned dates to ISO 8601 format.

Request: %s

Return ONLY valid JSON, no other text.`, now.Format("January 2, 2006"), request)
}
