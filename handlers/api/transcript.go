package api

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/validation"
)

const maxBodyBytes = 1024 * 1024

// handleTranscript handles POST /api/v1/transcript
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	if err := s.validator.ValidateRequest(r, validation.RequestValidationOpts{
		MaxContentLength: maxBodyBytes,
		RequireJSON:      true,
	}); err != nil {
		respondError(w, r, err)
		return
	}

	var req models.TranscriptRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.validator.NormalizeTranscriptRequest(&req); err != nil {
		respondError(w, r, err)
		return
	}

	text, err := s.svc.Transcripts.Fetch(r.Context(), req.VideoID, s.language(req.LanguageCode))
	if err != nil {
		respondError(w, r, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"video_id": req.VideoID,
		"chars":    len(text),
	}).Info("Transcript served")

	respondJSON(w, r, http.StatusOK, models.TranscriptResponse{
		VideoID:    req.VideoID,
		Transcript: text,
		Size:       sizeString(text),
	})
}

func (s *Server) language(requested string) string {
	if requested != "" {
		return requested
	}
	return s.config.Transcript.Language
}

// sizeString describes text as "W words, C characters".
func sizeString(text string) string {
	return fmt.Sprintf("%d words, %d characters", len(strings.Fields(text)), utf8.RuneCountInString(text))
}
