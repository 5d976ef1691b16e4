package api

import (
	"net/http"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/validation"
)

// handleVideoData handles GET /api/v1/video-data?video_id=
func (s *Server) handleVideoData(w http.ResponseWriter, r *http.Request) {
	const op = "api.handleVideoData"

	if s.svc.Metadata == nil {
		respondError(w, r, errors.Unavailable(op, nil, "YouTube metadata is not configured"))
		return
	}

	videoID, err := validation.ExtractVideoID(r.URL.Query().Get("video_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	meta, err := s.svc.Metadata.GetMetadata(r.Context(), videoID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, meta)
}

// handleProfile handles GET /api/v1/user/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.handleProfile"

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.Unauthorized(op, nil, "Authentication required"))
		return
	}
	if s.svc.Profiles == nil {
		respondError(w, r, errors.Unavailable(op, nil, "Profiles are not configured"))
		return
	}

	profile, err := s.svc.Profiles.GetProfile(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, errors.Internal(op, err, "Failed to load user profile"))
		return
	}
	if profile == nil {
		respondError(w, r, errors.NotFound(op, nil, "User profile not found"))
		return
	}

	respondJSON(w, r, http.StatusOK, models.ProfileResponse{
		UserID:  user.ID,
		Email:   user.Email,
		Credits: profile.Credits,
	})
}
