// v2
// internal/httpapi/ingest.go
package httpapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// handleIngest accepts motion payloads over HTTP for local tooling and
// simulators that bypass the broker:
// - application/json: either a single object or an array of objects
// - text/plain or application/x-ndjson: newline-delimited JSON
// Every payload goes through the same recorder as the Kafka path, so the
// validation and arrival-time rules are identical.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			s.log.Error("error closing request body", "err", err)
		}
	}(r.Body)

	added := 0
	var errs []string

	push := func(raw []byte) {
		if _, err := s.recorder.Record(r.Context(), raw); err != nil {
			errs = append(errs, err.Error())
			return
		}
		added++
	}

	if strings.Contains(ct, "application/json") {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		trimmed := bytes.TrimSpace(body)
		switch {
		case len(trimmed) == 0:
			s.writeError(w, http.StatusBadRequest, "empty body")
			return
		case trimmed[0] == '{':
			push(trimmed)
		case trimmed[0] == '[':
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				s.writeError(w, http.StatusBadRequest, "invalid JSON array")
				return
			}
			for _, item := range items {
				push(item)
			}
		default:
			s.writeError(w, http.StatusBadRequest, "unexpected JSON start")
			return
		}
	} else {
		// NDJSON fallback
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			push([]byte(line))
		}
		if err := sc.Err(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	status := http.StatusOK
	if added == 0 {
		status = http.StatusBadRequest
	}
	resp := map[string]any{
		"ingested": added,
	}
	if len(errs) > 0 {
		resp["errors"] = errs
	}
	s.writeJSON(w, status, resp)
}
