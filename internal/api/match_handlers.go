// Package api provides HTTP handlers for the matching API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onmission/matchd/internal/match"
	"github.com/onmission/matchd/internal/middleware"
	"github.com/onmission/matchd/internal/store"
)

// ScoreRequest is the body for POST /v1/match/score.
type ScoreRequest struct {
	Profile    match.Profile    `json:"profile"`
	Assignment match.Assignment `json:"assignment"`
	Weights    match.Weights    `json:"weights,omitempty"`
	Mode       string           `json:"mode,omitempty"`
}

// RankRequest is the body for POST /v1/match/rank and /v1/match/near.
// All fields are optional; the requester's identity comes from the token.
type RankRequest struct {
	Weights   match.Weights `json:"weights,omitempty"`
	Mode      string        `json:"mode,omitempty"`
	K         int           `json:"k,omitempty"`
	Threshold *float64      `json:"threshold,omitempty"`
}

// RankedResult is one ranked candidate with its redacted assignment attached.
type RankedResult struct {
	match.RankedMatch
	Assignment *match.Assignment `json:"assignment,omitempty"`
}

// RankMeta describes the ranking pass that produced the results.
type RankMeta struct {
	PoolSize   int           `json:"pool_size"`
	Returned   int           `json:"returned"`
	Threshold  float64       `json:"threshold"`
	DurationMS int64         `json:"duration_ms"`
	Weights    match.Weights `json:"weights"`
	Message    string        `json:"message,omitempty"`
}

// RankResponse is the body returned by the ranking endpoints.
type RankResponse struct {
	Results []RankedResult `json:"results"`
	Meta    RankMeta       `json:"meta"`
}

// MatchHandlers holds dependencies for the match scoring and ranking endpoints.
type MatchHandlers struct {
	store   store.Store
	presets match.Presets
	metrics *match.Metrics
	logger  *slog.Logger

	strictThreshold float64
	nearThreshold   float64
	maxPoolSize     int
}

// MatchHandlersConfig configures the match handlers. Thresholds default to
// the engine's strict/near defaults when zero.
type MatchHandlersConfig struct {
	Store           store.Store
	Presets         match.Presets
	Metrics         *match.Metrics
	Logger          *slog.Logger
	StrictThreshold float64
	NearThreshold   float64

	// MaxPoolSize caps the number of candidates scored per request.
	// Zero means no cap.
	MaxPoolSize int
}

// NewMatchHandlers creates a new MatchHandlers instance.
func NewMatchHandlers(cfg MatchHandlersConfig) *MatchHandlers {
	h := &MatchHandlers{
		store:           cfg.Store,
		presets:         cfg.Presets,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		strictThreshold: cfg.StrictThreshold,
		nearThreshold:   cfg.NearThreshold,
		maxPoolSize:     cfg.MaxPoolSize,
	}
	if h.presets == nil {
		h.presets = match.DefaultPresets()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.strictThreshold == 0 {
		h.strictThreshold = match.DefaultStrictThreshold
	}
	if h.nearThreshold == 0 {
		h.nearThreshold = match.DefaultNearThreshold
	}
	return h
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// weightErrorResponse maps weight resolution failures onto error codes.
func weightErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, match.ErrUnknownPreset):
		WriteError(w, r.Context(), StatusCodeMapping(ErrCodeInvalidMode), ErrCodeInvalidMode, err.Error())
	default:
		WriteError(w, r.Context(), StatusCodeMapping(ErrCodeInvalidWeight), ErrCodeInvalidWeight, err.Error())
	}
}

// Score handles POST /v1/match/score. It scores a single profile/assignment
// pair and returns the full explainable breakdown.
func (h *MatchHandlers) Score(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.Profile.ID == "" {
		WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, "profile.id is required")
		return
	}
	if req.Assignment.ID == "" {
		WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, "assignment.id is required")
		return
	}

	weights, err := h.presets.Resolve(req.Weights, req.Mode, req.Profile.Weights)
	if err != nil {
		weightErrorResponse(w, r, err)
		return
	}

	result := match.ScorePair(req.Profile, req.Assignment, weights)

	if h.metrics != nil {
		h.metrics.IncPairsScored()
		if result.HardFail {
			h.metrics.IncHardFails()
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// Rank handles POST /v1/match/rank. Strict mode: hard-failed candidates are
// never surfaced and the threshold defaults to the strict cutoff.
func (h *MatchHandlers) Rank(w http.ResponseWriter, r *http.Request) {
	h.rank(w, r, match.ModeStrict, h.strictThreshold)
}

// Near handles POST /v1/match/near. Near-match mode: hard-failed candidates
// stay in with a reason string, and the threshold drops to the near cutoff.
func (h *MatchHandlers) Near(w http.ResponseWriter, r *http.Request) {
	h.rank(w, r, match.ModeNear, h.nearThreshold)
}

func (h *MatchHandlers) rank(w http.ResponseWriter, r *http.Request, mode match.Mode, defaultThreshold float64) {
	if r.Method != http.MethodPost {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	ctx := r.Context()

	requesterID := middleware.GetRequesterID(ctx)
	if requesterID == "" {
		WriteError(w, ctx, StatusCodeMapping(ErrCodeAuthFailed), ErrCodeAuthFailed, "Missing requester identity")
		return
	}

	threshold := defaultThreshold
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			WriteError(w, ctx, StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, "threshold must be between 0 and 1")
			return
		}
		threshold = *req.Threshold
	}

	if req.K < 0 || req.K > match.MaxTopK {
		WriteError(w, ctx, StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, "k must be between 0 and 100")
		return
	}

	profile, err := h.store.GetProfile(ctx, requesterID)
	if err != nil {
		h.storeError(w, r, err, "No matching profile for requester; complete your profile first")
		return
	}

	pool, err := h.store.ListActive(ctx)
	if err != nil {
		h.storeError(w, r, err, "")
		return
	}
	if h.maxPoolSize > 0 && len(pool) > h.maxPoolSize {
		h.logger.WarnContext(ctx, "truncating ranking pool",
			"pool_size", len(pool), "max_pool_size", h.maxPoolSize)
		pool = pool[:h.maxPoolSize]
	}

	weights, err := h.presets.Resolve(req.Weights, req.Mode, profile.Weights)
	if err != nil {
		weightErrorResponse(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.IncRankRequests(mode)
		h.metrics.ObservePoolSize(len(pool))
	}

	start := time.Now()
	ranked, err := match.Rank(ctx, *profile, pool, match.RankParams{
		Weights:   weights,
		Mode:      mode,
		Threshold: threshold,
		K:         req.K,
	})
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			// Client went away; nothing useful to write.
			return
		}
		h.logger.ErrorContext(ctx, "ranking failed", "error", err, "mode", string(mode))
		WriteError(w, ctx, StatusCodeMapping(ErrCodeInternal), ErrCodeInternal, "Ranking failed")
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveRankDuration(mode, duration.Seconds())
	}

	byID := make(map[string]match.Assignment, len(pool))
	for _, a := range pool {
		byID[a.ID] = a
	}

	results := make([]RankedResult, 0, len(ranked))
	for _, m := range ranked {
		res := RankedResult{RankedMatch: m}
		if a, ok := byID[m.AssignmentID]; ok {
			redacted := match.RedactAssignment(a)
			res.Assignment = &redacted
		}
		results = append(results, res)
	}

	meta := RankMeta{
		PoolSize:   len(pool),
		Returned:   len(results),
		Threshold:  threshold,
		DurationMS: duration.Milliseconds(),
		Weights:    weights,
	}
	if len(results) == 0 {
		meta.Message = "No matches above the threshold. Adjust your weights or try the near-match endpoint."
	}

	h.logger.InfoContext(ctx, "ranking completed",
		"mode", string(mode),
		"pool_size", len(pool),
		"returned", len(results),
		"duration_ms", duration.Milliseconds(),
	)

	writeJSON(w, http.StatusOK, RankResponse{Results: results, Meta: meta})
}

// storeError maps repository errors onto API error responses.
// notConfiguredMessage customizes the 404 for a missing requester profile;
// when empty a generic not-found message is used.
func (h *MatchHandlers) storeError(w http.ResponseWriter, r *http.Request, err error, notConfiguredMessage string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, store.ErrProfileNotFound):
		msg := notConfiguredMessage
		if msg == "" {
			msg = "Profile not found"
		}
		WriteError(w, ctx, StatusCodeMapping(ErrCodeNotConfigured), ErrCodeNotConfigured, msg)
	case errors.Is(err, store.ErrAssignmentNotFound):
		WriteError(w, ctx, StatusCodeMapping(ErrCodeNotFound), ErrCodeNotFound, "Assignment not found")
	case errors.Is(err, store.ErrUnavailable):
		h.logger.ErrorContext(ctx, "store unavailable", "error", err)
		WriteError(w, ctx, StatusCodeMapping(ErrCodeUpstreamUnavailable), ErrCodeUpstreamUnavailable, "Backing store is unavailable")
	default:
		h.logger.ErrorContext(ctx, "store operation failed", "error", err)
		WriteError(w, ctx, StatusCodeMapping(ErrCodeInternal), ErrCodeInternal, "Internal server error")
	}
}
