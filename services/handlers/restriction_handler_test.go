package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

type stubRestrictionService struct {
	clientCalls   int
	providerCalls int
}

func (s *stubRestrictionService) IsUserFrozen(userID string) (bool, *model.BookingRestriction, error) {
	return false, nil, nil
}

func (s *stubRestrictionService) IsProviderFrozen(userID string) (bool, *model.ProviderRestriction, error) {
	return false, nil, nil
}

func (s *stubRestrictionService) CreateManualBookingRestriction(userID, reason string, level int, permanent bool, notes string) (*model.BookingRestriction, error) {
	s.clientCalls++
	return &model.BookingRestriction{Restriction: model.Restriction{
		ID:              "r-1",
		UserID:          userID,
		RestrictionType: shared.RestrictionManual,
		Reason:          reason,
		ViolationLevel:  level,
		IsFrozen:        true,
		FrozenAt:        time.Now(),
		Notes:           notes,
	}}, nil
}

func (s *stubRestrictionService) CreateManualProviderRestriction(userID, reason string, level int, permanent bool, notes string) (*model.ProviderRestriction, error) {
	s.providerCalls++
	return &model.ProviderRestriction{Restriction: model.Restriction{
		ID:              "r-2",
		UserID:          userID,
		RestrictionType: shared.RestrictionManual,
		Reason:          reason,
		ViolationLevel:  level,
		IsFrozen:        true,
		FrozenAt:        time.Now(),
	}}, nil
}

func (s *stubRestrictionService) UnfreezeBooking(id, unfrozenBy, notes string) (*model.BookingRestriction, error) {
	return nil, nil
}

func (s *stubRestrictionService) UnfreezeProvider(id, unfrozenBy, notes string) (*model.ProviderRestriction, error) {
	return nil, nil
}

func (s *stubRestrictionService) GetBookingRestrictions(userID string) ([]model.BookingRestriction, error) {
	return nil, nil
}

func (s *stubRestrictionService) GetProviderRestrictions(userID string) ([]model.ProviderRestriction, error) {
	return nil, nil
}

func (s *stubRestrictionService) GetAllBookingRestrictions(includeUnfrozen bool) ([]model.BookingRestriction, error) {
	return nil, nil
}

func (s *stubRestrictionService) GetAllProviderRestrictions(includeUnfrozen bool) ([]model.ProviderRestriction, error) {
	return nil, nil
}

func newRestrictionTestApp(svc *stubRestrictionService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := shared.GetAppError(err); ok {
				return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
			}
			return shared.ResponseInternalError(c, err)
		},
	})

	h := NewRestrictionHandler(svc)
	app.Post("/admin/restrictions", h.CreateManualRestriction)
	return app
}

func postManualRestriction(t *testing.T, app *fiber.App, req dto.ManualRestrictionRequest) *http.Response {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/admin/restrictions", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(httpReq)
	require.NoError(t, err)
	return resp
}

func TestCreateManualRestrictionHandler(t *testing.T) {
	svc := &stubRestrictionService{}
	app := newRestrictionTestApp(svc)

	resp := postManualRestriction(t, app, dto.ManualRestrictionRequest{
		UserID:         "u-1",
		Family:         "client",
		Reason:         "support ticket",
		ViolationLevel: 2,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, svc.clientCalls)

	resp = postManualRestriction(t, app, dto.ManualRestrictionRequest{
		UserID:         "u-2",
		Family:         "provider",
		Reason:         "support ticket",
		ViolationLevel: 1,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, svc.providerCalls)
}

// A family outside client/provider must come back as a 400, never reach the
// service or panic mid-handler.
func TestCreateManualRestrictionHandler_UnknownFamily(t *testing.T) {
	svc := &stubRestrictionService{}
	app := newRestrictionTestApp(svc)

	resp := postManualRestriction(t, app, dto.ManualRestrictionRequest{
		UserID:         "u-1",
		Family:         "staff",
		Reason:         "support ticket",
		ViolationLevel: 2,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, svc.clientCalls)
	assert.Equal(t, 0, svc.providerCalls)
}
