package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onmission/matchd/internal/match"
	"github.com/onmission/matchd/internal/store"
	"github.com/onmission/matchd/internal/validate"
)

// ProfileHandlers holds dependencies for matching-profile CRUD endpoints.
// These are written by the pool sync worker and by profile-management
// services holding a service token.
type ProfileHandlers struct {
	store  store.ProfileStore
	logger *slog.Logger
}

// NewProfileHandlers creates a new ProfileHandlers instance.
func NewProfileHandlers(s store.ProfileStore, logger *slog.Logger) *ProfileHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileHandlers{store: s, logger: logger}
}

// validateProfile checks the fields a stored matching profile must satisfy.
// Returns an error message, empty when valid.
func validateProfile(p match.Profile) string {
	if p.ID == "" {
		return "id is required"
	}
	if _, err := validate.EntityID(p.ID); err != nil {
		return "id: " + err.Error()
	}
	if p.WorkMode != "" && !match.ValidLocationMode(p.WorkMode) {
		return "work_mode must be remote, hybrid, or onsite"
	}
	for id, skill := range p.Skills {
		if _, err := validate.SkillID(id); err != nil {
			return "skill " + id + ": " + err.Error()
		}
		if skill.Level < 0 || skill.Level > 5 {
			return "skill " + id + ": level must be between 0 and 5"
		}
		if skill.Months < 0 {
			return "skill " + id + ": months must not be negative"
		}
	}
	if err := match.ValidateWeights(p.Weights); err != nil {
		return err.Error()
	}
	return ""
}

// Collection handles /v1/profiles (POST upsert).
func (h *ProfileHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var profile match.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if msg := validateProfile(profile); msg != "" {
		WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, msg)
		return
	}

	if err := h.store.UpsertProfile(r.Context(), &profile); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ByID handles /v1/profiles/{id} (GET, PUT, DELETE).
func (h *ProfileHandlers) ByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, "profile id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := h.store.GetProfile(r.Context(), id)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)

	case http.MethodPut:
		var profile match.Profile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
		// The path is authoritative for the ID.
		profile.ID = id
		if msg := validateProfile(profile); msg != "" {
			WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, msg)
			return
		}
		if err := h.store.UpsertProfile(r.Context(), &profile); err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)

	case http.MethodDelete:
		if err := h.store.DeleteProfile(r.Context(), id); err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *ProfileHandlers) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	writeStoreError(w, r, h.logger, err)
}

// writeStoreError maps repository errors onto the standard error envelope.
func writeStoreError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, store.ErrProfileNotFound):
		WriteError(w, ctx, StatusCodeMapping(ErrCodeNotFound), ErrCodeNotFound, "Profile not found")
	case errors.Is(err, store.ErrAssignmentNotFound):
		WriteError(w, ctx, StatusCodeMapping(ErrCodeNotFound), ErrCodeNotFound, "Assignment not found")
	case errors.Is(err, store.ErrUnavailable):
		logger.ErrorContext(ctx, "store unavailable", "error", err)
		WriteError(w, ctx, StatusCodeMapping(ErrCodeUpstreamUnavailable), ErrCodeUpstreamUnavailable, "Backing store is unavailable")
	default:
		logger.ErrorContext(ctx, "store operation failed", "error", err)
		WriteError(w, ctx, StatusCodeMapping(ErrCodeInternal), ErrCodeInternal, "Internal server error")
	}
}
