package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onmission/matchd/internal/match"
	"github.com/onmission/matchd/internal/store"
	"github.com/onmission/matchd/internal/validate"
)

// AssignmentHandlers holds dependencies for assignment CRUD endpoints.
// Assignments are written by the pool sync worker and by organization
// services holding a service token; only active ones enter the ranking pool.
type AssignmentHandlers struct {
	store  store.AssignmentStore
	logger *slog.Logger
}

// NewAssignmentHandlers creates a new AssignmentHandlers instance.
func NewAssignmentHandlers(s store.AssignmentStore, logger *slog.Logger) *AssignmentHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentHandlers{store: s, logger: logger}
}

// validateAssignment checks the fields a stored assignment must satisfy.
// Returns an error message, empty when valid.
func validateAssignment(a match.Assignment) string {
	if a.ID == "" {
		return "id is required"
	}
	if _, err := validate.EntityID(a.ID); err != nil {
		return "id: " + err.Error()
	}
	if _, err := validate.AssignmentTitle(a.Title); err != nil {
		return "title: " + err.Error()
	}
	if a.ContactEmail != "" {
		if _, err := validate.Email(a.ContactEmail); err != nil {
			return "contact_email: " + err.Error()
		}
	}
	if a.Status != "" && a.Status != match.StatusActive && a.Status != match.StatusClosed {
		return "status must be active or closed"
	}
	if a.LocationMode != "" && !match.ValidLocationMode(a.LocationMode) {
		return "location_mode must be remote, hybrid, or onsite"
	}
	for _, req := range a.MustHave {
		if req.Level < 0 || req.Level > 5 {
			return "must_have " + req.ID + ": level must be between 0 and 5"
		}
	}
	for _, req := range a.NiceToHave {
		if req.Level < 0 || req.Level > 5 {
			return "nice_to_have " + req.ID + ": level must be between 0 and 5"
		}
	}
	return ""
}

// Collection handles /v1/assignments (GET list active, POST upsert).
func (h *AssignmentHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assignments, err := h.store.ListActive(r.Context())
		if err != nil {
			writeStoreError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})

	case http.MethodPost:
		var assignment match.Assignment
		if err := json.NewDecoder(r.Body).Decode(&assignment); err != nil {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
		if msg := validateAssignment(assignment); msg != "" {
			WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, msg)
			return
		}
		if assignment.Status == "" {
			assignment.Status = match.StatusActive
		}
		if err := h.store.UpsertAssignment(r.Context(), &assignment); err != nil {
			writeStoreError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, assignment)

	default:
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// ByID handles /v1/assignments/{id} (GET, PUT, DELETE).
func (h *AssignmentHandlers) ByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, "assignment id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		assignment, err := h.store.GetAssignment(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, assignment)

	case http.MethodPut:
		var assignment match.Assignment
		if err := json.NewDecoder(r.Body).Decode(&assignment); err != nil {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
		assignment.ID = id
		if msg := validateAssignment(assignment); msg != "" {
			WriteError(w, r.Context(), StatusCodeMapping(ErrCodeValidation), ErrCodeValidation, msg)
			return
		}
		if assignment.Status == "" {
			assignment.Status = match.StatusActive
		}
		if err := h.store.UpsertAssignment(r.Context(), &assignment); err != nil {
			writeStoreError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, assignment)

	case http.MethodDelete:
		if err := h.store.DeleteAssignment(r.Context(), id); err != nil {
			writeStoreError(w, r, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}
