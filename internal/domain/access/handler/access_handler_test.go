package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/calmora/calmora-api/internal/domain/access"
	"github.com/calmora/calmora-api/internal/middleware"
	"github.com/calmora/calmora-api/internal/types"
)

type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) CheckContentAccess(ctx context.Context, params access.CheckAccessParams) (*types.AccessVerdict, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AccessVerdict), args.Error(1)
}

func (m *MockAccessService) CheckBatchContentAccess(ctx context.Context, userID *uuid.UUID, contentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, userID, contentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

func (m *MockAccessService) RevalidateAccess(ctx context.Context, userID, contentID uuid.UUID) (*types.RevalidationResult, error) {
	args := m.Called(ctx, userID, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RevalidationResult), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func setupHandlerTest() (*AccessHandler, *MockAccessService, *MockUserRepo, *chi.Mux) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := new(MockAccessService)
	userRepo := new(MockUserRepo)
	h := NewAccessHandler(svc, userRepo, logger)

	r := chi.NewRouter()
	r.Get("/v1/content/{contentID}/access", h.CheckAccess)
	r.Post("/v1/content/access/batch", h.CheckBatchAccess)
	r.Get("/v1/content/{contentID}/revalidate", h.Revalidate)
	return h, svc, userRepo, r
}

func TestCheckAccess_Granted(t *testing.T) {
	_, svc, userRepo, router := setupHandlerTest()
	contentID := uuid.New()
	userID := uuid.New()

	userRepo.On("Exists", mock.Anything, userID).Return(true, nil).Once()
	svc.On("CheckContentAccess", mock.Anything, access.CheckAccessParams{
		ContentID: contentID,
		UserID:    &userID,
	}).Return(&types.AccessVerdict{
		HasAccess: true,
		Reason:    types.ReasonActiveSubscription,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/content/"+contentID.String()+"/access", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body verdictResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.HasAccess)
	assert.Equal(t, types.ReasonActiveSubscription, body.Reason)
	assert.NotEmpty(t, body.Message)
}

func TestCheckAccess_DenialStatusCodes(t *testing.T) {
	tests := []struct {
		reason types.AccessReason
		status int
	}{
		{types.ReasonNoSubscription, http.StatusForbidden},
		{types.ReasonSubscriptionExpired, http.StatusForbidden},
		{types.ReasonSubscriptionPastDue, http.StatusForbidden},
		{types.ReasonUnauthenticated, http.StatusUnauthorized},
		{types.ReasonContentNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			_, svc, _, router := setupHandlerTest()
			contentID := uuid.New()

			svc.On("CheckContentAccess", mock.Anything, mock.Anything).Return(&types.AccessVerdict{
				HasAccess: false,
				Reason:    tt.reason,
			}, nil).Once()

			req := httptest.NewRequest(http.MethodGet, "/v1/content/"+contentID.String()+"/access", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCheckAccess_DeletedUserAnswers404(t *testing.T) {
	_, svc, userRepo, router := setupHandlerTest()
	contentID := uuid.New()
	userID := uuid.New()

	userRepo.On("Exists", mock.Anything, userID).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/content/"+contentID.String()+"/access", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body verdictResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.HasAccess)
	assert.Equal(t, types.ReasonUserNotFound, body.Reason)
	svc.AssertNotCalled(t, "CheckContentAccess", mock.Anything, mock.Anything)
}

func TestCheckAccess_InvalidContentID(t *testing.T) {
	_, _, _, router := setupHandlerTest()

	req := httptest.NewRequest(http.MethodGet, "/v1/content/not-a-uuid/access", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckBatchAccess(t *testing.T) {
	_, svc, _, router := setupHandlerTest()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	svc.On("CheckBatchContentAccess", mock.Anything, (*uuid.UUID)(nil), ids).
		Return(map[uuid.UUID]bool{ids[0]: true, ids[1]: false}, nil).Once()

	payload, _ := json.Marshal(batchRequest{ContentIDs: ids})
	req := httptest.NewRequest(http.MethodPost, "/v1/content/access/batch", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body batchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Access[ids[0]])
	assert.False(t, body.Access[ids[1]])
}

func TestCheckBatchAccess_EmptyBody(t *testing.T) {
	_, _, _, router := setupHandlerTest()

	req := httptest.NewRequest(http.MethodPost, "/v1/content/access/batch", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevalidate_RequiresAuth(t *testing.T) {
	_, svc, _, router := setupHandlerTest()
	contentID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/content/"+contentID.String()+"/revalidate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body types.RevalidationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Valid)
	svc.AssertNotCalled(t, "RevalidateAccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevalidate_Valid(t *testing.T) {
	_, svc, _, router := setupHandlerTest()
	contentID := uuid.New()
	userID := uuid.New()

	svc.On("RevalidateAccess", mock.Anything, userID, contentID).Return(&types.RevalidationResult{
		Valid:       true,
		Reason:      types.ReasonActiveSubscription,
		ExpiresIn:   86400,
		NextCheckIn: 300,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/content/"+contentID.String()+"/revalidate", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body types.RevalidationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Valid)
	assert.Equal(t, int64(300), body.NextCheckIn)
}

// TestRevalidate_BackendErrorFailsClosed pins the wire contract for a
// degraded backend: 503, Retry-After guidance, and a valid:false body.
func TestRevalidate_BackendErrorFailsClosed(t *testing.T) {
	_, svc, _, router := setupHandlerTest()
	contentID := uuid.New()
	userID := uuid.New()

	svc.On("RevalidateAccess", mock.Anything, userID, contentID).
		Return(&types.RevalidationResult{Valid: false}, errors.New("db down")).Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/content/"+contentID.String()+"/revalidate", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))

	var body types.RevalidationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Valid)
}

func TestRevalidate_DeniedStatusMapsToReason(t *testing.T) {
	_, svc, _, router := setupHandlerTest()
	contentID := uuid.New()
	userID := uuid.New()

	svc.On("RevalidateAccess", mock.Anything, userID, contentID).Return(&types.RevalidationResult{
		Valid:  false,
		Reason: types.ReasonSubscriptionExpired,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/content/"+contentID.String()+"/revalidate", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
