package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/models"
)

type Response = models.Response

func respondJSON(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	response := Response{
		Success:   code >= 200 && code < 300,
		Data:      payload,
		RequestID: middleware.GetRequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	}

	if !response.Success && payload != nil {
		if msg, ok := payload.(string); ok {
			response.Error = msg
			response.Data = nil
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to encode response")
	}
}

// mapError turns an error into the status and message shown to clients.
// Internal details stay in the logs.
func mapError(err error) (int, string) {
	var appErr *errors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Code, appErr.Message
	case errors.Is(err, errors.ErrTranscriptUnavailable):
		return http.StatusNotFound, "Transcript not available for this video"
	case errors.Is(err, errors.ErrUpstreamTimeout):
		return http.StatusServiceUnavailable, "Language model request timed out"
	default:
		return http.StatusInternalServerError, "processing error"
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := mapError(err)

	entry := middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"error":  err,
		"status": code,
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Warn("Request error")
	}

	respondJSON(w, r, code, msg)
}

func readJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.InvalidInput("readJSON", err, "Invalid JSON format")
	}
	return nil
}
