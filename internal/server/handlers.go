package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/mqln/mcp-server-smtp/internal/audit"
	"github.com/mqln/mcp-server-smtp/internal/dispatch"
	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

// sendResponse is the structured result of the send operation.
type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var msg email.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	out, err := s.dispatcher.Send(r.Context(), &msg)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := sendResponse{Success: out.Success, ID: out.ID}
	if out.Success {
		resp.Message = fmt.Sprintf("Email sent successfully via relay %s", out.RelayID)
	} else {
		resp.Message = fmt.Sprintf("Email delivery failed: %s", out.Error)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendBulk(w http.ResponseWriter, r *http.Request) {
	var req dispatch.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	// The engine never returns an error: partial and even total delivery
	// failure is a completed operation with a structured summary.
	result := s.engine.SendBulk(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRelays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Redacted())
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.log.ReadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read delivery logs: %v", err))
		return
	}

	q := r.URL.Query()
	if v := q.Get("success"); v != "" {
		want, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "success must be true or false")
			return
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Success == want {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	// Newest first. Write order breaks timestamp ties.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(entries) {
			entries = entries[:limit]
		}
	}

	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// statusFor maps a dispatch failure to an HTTP status code.
func statusFor(err error) int {
	if errors.Is(err, relay.ErrNotFound) {
		return http.StatusNotFound
	}
	switch dispatch.KindOf(err) {
	case dispatch.KindValidation:
		return http.StatusBadRequest
	case dispatch.KindTemplate:
		return http.StatusUnprocessableEntity
	case dispatch.KindConfigInvalid:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, sendResponse{Success: false, Message: message})
}
