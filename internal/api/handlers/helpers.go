// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("Failed to encode JSON response")
		}
	}
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error: message,
	})
}

// DecodeJSON decodes the request body into the provided struct.
// Returns false if decoding fails (error already sent to client).
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// DecodeJSONOptional decodes the request body into the provided struct.
// Returns true if decoding succeeds or body is empty (io.EOF).
// Returns false only on actual decode errors (error already sent to client).
func DecodeJSONOptional[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && err != io.EOF {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ParseIntParam extracts and validates a generic integer URL parameter.
// Returns the value and true on success, or 0 and false if invalid (error already sent).
// The displayName is used in error messages (e.g., "season number" for user-friendly output).
func ParseIntParam(w http.ResponseWriter, r *http.Request, paramName, displayName string) (int, bool) {
	str, ok := ParseStringParam(w, r, paramName, displayName)
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid "+displayName)
		return 0, false
	}
	return value, true
}

// ParsePositiveIntParam extracts and validates a positive integer URL parameter (> 0).
// Returns the value and true on success, or 0 and false if invalid (error already sent).
func ParsePositiveIntParam(w http.ResponseWriter, r *http.Request, paramName, displayName string) (int, bool) {
	value, ok := ParseIntParam(w, r, paramName, displayName)
	if !ok {
		return 0, false
	}
	if value <= 0 {
		RespondError(w, http.StatusBadRequest, "Invalid "+displayName)
		return 0, false
	}
	return value, true
}

// ParseIntParam64 extracts and validates a generic int64 URL parameter.
// Returns the value and true on success, or 0 and false if invalid (error already sent).
func ParseIntParam64(w http.ResponseWriter, r *http.Request, paramName, displayName string) (int64, bool) {
	str, ok := ParseStringParam(w, r, paramName, displayName)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid "+displayName)
		return 0, false
	}
	return value, true
}

// ParseStringParam extracts and validates a generic string URL parameter.
// The value is trimmed of whitespace before validation.
// Returns the trimmed value and true on success, or empty string and false if missing (error already sent).
func ParseStringParam(w http.ResponseWriter, r *http.Request, paramName, displayName string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, paramName))
	if value == "" {
		RespondError(w, http.StatusBadRequest, displayName+" is required")
		return "", false
	}
	return value, true
}

func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
