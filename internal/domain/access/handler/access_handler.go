// Package handler exposes the entitlement engine over HTTP. Handlers
// translate verdicts into status codes and JSON bodies; all policy lives
// in the access service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calmora/calmora-api/internal/domain/access"
	"github.com/calmora/calmora-api/internal/domain/user"
	"github.com/calmora/calmora-api/internal/middleware"
	"github.com/calmora/calmora-api/internal/types"
)

type AccessHandler struct {
	service  access.Service
	userRepo user.Repository
	logger   *slog.Logger
}

func NewAccessHandler(service access.Service, userRepo user.Repository, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		service:  service,
		userRepo: userRepo,
		logger:   logger,
	}
}

type verdictResponse struct {
	HasAccess     bool                      `json:"hasAccess"`
	Reason        types.AccessReason        `json:"reason"`
	Message       string                    `json:"message"`
	IsFreeContent bool                      `json:"isFreeContent"`
	Subscription  *types.SubscriptionGrant  `json:"subscription,omitempty"`
	Creator       *types.CreatorPaywallInfo `json:"creator,omitempty"`
}

// CheckAccess handles GET /v1/content/{contentID}/access.
func (h *AccessHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contentID, err := uuid.Parse(chi.URLParam(r, "contentID"))
	if err != nil {
		http.Error(w, "invalid content id", http.StatusBadRequest)
		return
	}

	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	verdict, err := h.service.CheckContentAccess(ctx, access.CheckAccessParams{
		ContentID: contentID,
		UserID:    userID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "access check failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, statusForVerdict(verdict), verdictResponse{
		HasAccess:     verdict.HasAccess,
		Reason:        verdict.Reason,
		Message:       verdict.Reason.Message(),
		IsFreeContent: verdict.IsFreeContent,
		Subscription:  verdict.Subscription,
		Creator:       verdict.Creator,
	})
}

type batchRequest struct {
	ContentIDs []uuid.UUID `json:"contentIds"`
}

type batchResponse struct {
	Access map[uuid.UUID]bool `json:"access"`
}

// CheckBatchAccess handles POST /v1/content/access/batch.
func (h *AccessHandler) CheckBatchAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.ContentIDs) == 0 {
		http.Error(w, "contentIds is required", http.StatusBadRequest)
		return
	}

	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.CheckBatchContentAccess(ctx, userID, req.ContentIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch access check failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{Access: result})
}

// Revalidate handles GET /v1/content/{contentID}/revalidate. Any
// failure answers valid:false with retry guidance; the player must not
// continue playback while retries are outstanding.
func (h *AccessHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contentID, err := uuid.Parse(chi.URLParam(r, "contentID"))
	if err != nil {
		http.Error(w, "invalid content id", http.StatusBadRequest)
		return
	}

	userID, authed := middleware.UserIDFromContext(ctx)
	if !authed {
		writeJSON(w, http.StatusUnauthorized, types.RevalidationResult{
			Valid:  false,
			Reason: types.ReasonUnauthenticated,
		})
		return
	}

	result, err := h.service.RevalidateAccess(ctx, userID, contentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "revalidation failed", slog.Any("error", err))
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusServiceUnavailable, types.RevalidationResult{Valid: false})
		return
	}

	status := http.StatusOK
	if !result.Valid {
		status = statusForReason(result.Reason)
	}
	writeJSON(w, status, result)
}

// resolveUser extracts the optional authenticated user and verifies the
// account still exists. A live token over a deleted account answers 404
// user_not_found.
func (h *AccessHandler) resolveUser(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	ctx := r.Context()

	userID, authed := middleware.UserIDFromContext(ctx)
	if !authed {
		return nil, true
	}

	exists, err := h.userRepo.Exists(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "user existence check failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, verdictResponse{
			HasAccess: false,
			Reason:    types.ReasonUserNotFound,
			Message:   types.ReasonUserNotFound.Message(),
		})
		return nil, false
	}

	return &userID, true
}

func statusForVerdict(verdict *types.AccessVerdict) int {
	if verdict.HasAccess {
		return http.StatusOK
	}
	return statusForReason(verdict.Reason)
}

func statusForReason(reason types.AccessReason) int {
	switch reason {
	case types.ReasonContentNotFound, types.ReasonUserNotFound:
		return http.StatusNotFound
	case types.ReasonUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
