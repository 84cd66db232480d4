// v1
// internal/httpapi/middleware.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader carries the per-request correlation ID. Clients may supply
// their own; otherwise one is minted here.
const requestIDHeader = "X-Request-Id"

// requestID tags every request and response with a correlation ID so access
// log lines can be matched to application log entries.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		s.log.Error("error encoding JSON response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"error": msg})
}
