package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxBodyBytes bounds every JSON request body
const MaxBodyBytes = 10 << 20

// ParseJSON decodes JSON from the request body into the given destination.
// It limits the request body size to prevent abuse and provides clear error messages.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	// requires w for a proper 413 response
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	// Unknown fields are allowed: the automaton endpoint sniffs which structure was sent
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
