package coach

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/moorebrett0/climbcoach/internal/backend"
)

// envelope is the JSON object every tool returns. It always carries either
// "success" or "error".
type envelope map[string]any

func ok(fields envelope) envelope {
	out := envelope{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func fail(msg string) envelope {
	return envelope{"success": false, "error": msg}
}

func failf(format string, args ...any) envelope {
	return fail(fmt.Sprintf(format, args...))
}

// failBackend converts a persistence error. Status errors keep the service's
// message and code; anything else is a transport failure.
func failBackend(err error, action string) envelope {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return envelope{"success": false, "error": se.Message, "status_code": se.StatusCode}
	}
	return failf("Error %s: %v", action, err)
}

func (e envelope) encode() string {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		data, _ = json.Marshal(fail(fmt.Sprintf("encode result: %v", err)))
	}
	return string(data)
}
