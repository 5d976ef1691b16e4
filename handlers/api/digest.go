package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/digest"
	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/validation"
)

// readDigestRequest decodes and normalizes a digest body and returns the
// authenticated user.
func (s *Server) readDigestRequest(r *http.Request) (*models.DigestRequest, *models.User, error) {
	const op = "api.readDigestRequest"

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil, nil, errors.Unauthorized(op, nil, "Authentication required")
	}

	if err := s.validator.ValidateRequest(r, validation.RequestValidationOpts{
		MaxContentLength: maxBodyBytes,
		RequireJSON:      true,
	}); err != nil {
		return nil, nil, err
	}

	var req models.DigestRequest
	if err := readJSON(r, &req); err != nil {
		return nil, nil, err
	}
	if err := s.validator.NormalizeDigestRequest(&req); err != nil {
		return nil, nil, err
	}
	return &req, user, nil
}

// prepareDigest fills missing metadata, fetches the transcript and picks the
// model.
func (s *Server) prepareDigest(ctx context.Context, req *models.DigestRequest) (digest.Request, error) {
	const op = "api.prepareDigest"
	logger := middleware.GetLogger(ctx).WithField("video_id", req.VideoID)

	mode, err := digest.ParseMode(req.Mode)
	if err != nil {
		return digest.Request{}, errors.InvalidInput(op, err, "Unknown mode")
	}

	if s.svc.Metadata != nil && (req.DurationSeconds == 0 || len(req.Tags) == 0) {
		meta, err := s.svc.Metadata.GetMetadata(ctx, req.VideoID)
		if err != nil {
			logger.WithError(err).Warn("Metadata lookup failed, continuing without it")
		} else {
			if req.DurationSeconds == 0 {
				req.DurationSeconds = meta.DurationSeconds
			}
			if len(req.Tags) == 0 {
				req.Tags = meta.Tags
			}
		}
	}

	text, err := s.svc.Transcripts.Fetch(ctx, req.VideoID, s.language(req.LanguageCode))
	if err != nil {
		return digest.Request{}, err
	}

	minutes := float64(req.DurationSeconds) / 60
	model, err := s.svc.Selector.SelectForContent(mode, minutes, req.ContentType)
	if err != nil {
		return digest.Request{}, errors.Internal(op, err, "No model configured for this request")
	}
	if s.config.LLM.Temperature > 0 {
		model.Temperature = s.config.LLM.Temperature
	}

	logger.WithFields(logrus.Fields{
		"mode":       mode,
		"model":      model.Model,
		"max_tokens": model.MaxTokens,
		"minutes":    minutes,
	}).Info("Digest prepared")

	return digest.Request{
		Transcript:      text,
		Mode:            mode,
		CustomPrompt:    req.PromptTemplate,
		Tags:            req.Tags,
		DurationSeconds: float64(req.DurationSeconds),
		Model:           model,
	}, nil
}

// handleDigest handles POST /api/v1/digest. One credit is taken only when
// the digest was produced.
func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	req, user, err := s.readDigestRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := s.svc.Credits.Check(ctx, user.ID); err != nil {
		respondError(w, r, err)
		return
	}

	dreq, err := s.prepareDigest(ctx, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	content, err := s.svc.Processor.Process(ctx, dreq)
	if err != nil {
		respondError(w, r, err)
		return
	}
	_, _ = s.svc.Credits.Deduct(ctx, user.ID)

	record := &models.Digest{
		VideoID: req.VideoID,
		UserID:  user.ID,
		Mode:    string(dreq.Mode),
		Model:   dreq.Model.Model,
		Content: content,
	}
	s.saveHistory(r.Context(), record)
	respondJSON(w, r, http.StatusOK, models.NewDigestResponse(record))
}

func (s *Server) saveHistory(ctx context.Context, d *models.Digest) {
	if s.svc.History == nil {
		return
	}
	if err := s.svc.History.SaveDigest(context.WithoutCancel(ctx), d); err != nil {
		middleware.GetLogger(ctx).WithError(err).WithField("video_id", d.VideoID).
			Warn("Failed to save digest history")
	}
}

// handleDigestStream handles POST /api/v1/digest/stream. The body is plain
// text written as fragments arrive; a credit is taken after the last one.
func (s *Server) handleDigestStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	req, user, err := s.readDigestRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.svc.Credits.Check(ctx, user.ID); err != nil {
		respondError(w, r, err)
		return
	}

	dreq, err := s.prepareDigest(ctx, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stream, err := s.svc.Processor.Stream(ctx, dreq)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.WithError(ctx.Err()).Warn("Client went away during digest stream")
			return
		case f, ok := <-stream.Fragments():
			if !ok {
				logger.WithFields(logrus.Fields{
					"video_id": req.VideoID,
					"elapsed":  time.Since(start),
				}).Info("Digest stream completed")
				_, _ = s.svc.Credits.Deduct(ctx, user.ID)
				return
			}
			if f.Err != nil {
				logger.WithError(f.Err).Error("Digest stream failed")
				return
			}
			if _, err := w.Write([]byte(f.Text)); err != nil {
				logger.WithError(err).Warn("Failed to write stream fragment")
				return
			}
			_ = rc.Flush()
		}
	}
}

// handleDigestHistory handles GET /api/v1/digests?video_id=
func (s *Server) handleDigestHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.handleDigestHistory"

	if s.svc.History == nil {
		respondError(w, r, errors.Unavailable(op, nil, "Digest history is not enabled"))
		return
	}

	videoID, err := validation.ExtractVideoID(r.URL.Query().Get("video_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	digests, err := s.svc.History.ListDigests(r.Context(), videoID, 0)
	if err != nil {
		respondError(w, r, errors.Internal(op, err, "Failed to load digest history"))
		return
	}

	out := make([]*models.DigestResponse, 0, len(digests))
	for _, d := range digests {
		out = append(out, models.NewDigestResponse(d))
	}
	respondJSON(w, r, http.StatusOK, out)
}
