package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

func newTestBookingService(t *testing.T) (*BookingService, *PostgresService) {
	t.Helper()

	guard, ds := newTestGuard(t)
	svc := &BookingService{
		sqlSvc:         ds,
		restrictionSvc: guard,
	}
	return svc, ds
}

func seedBooking(t *testing.T, ds *PostgresService, clientID, providerID string, scheduledAt time.Time) *model.Booking {
	t.Helper()

	booking := &model.Booking{
		ID:          newID(),
		ClientID:    clientID,
		ProviderID:  providerID,
		Status:      shared.BookingStatusConfirmed,
		ScheduledAt: scheduledAt,
	}
	_, err := ds.CreateBooking(booking)
	require.NoError(t, err)
	return booking
}

func TestCreateBooking(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)

	resp, err := svc.CreateBooking(client.ID, dto.CreateBookingRequest{
		ProviderID:  provider.ID,
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Notes:       "table for two",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, shared.BookingStatusConfirmed, resp.Status)
	assert.Equal(t, client.ID, resp.ClientID)

	stored, err := ds.GetBooking(resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "table for two", stored.Notes)
}

func TestCreateBooking_FrozenClientRejected(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)

	require.NoError(t, ds.CreateBookingRestriction(frozenBookingRestriction(client.ID, 1, inDays(30))))

	_, err := svc.CreateBooking(client.ID, dto.CreateBookingRequest{
		ProviderID:  provider.ID,
		ScheduledAt: time.Now().Add(48 * time.Hour),
	})
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)

	// The rejection carries the restriction summary, nothing more.
	data, ok := appErr.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, shared.RestrictionCancellationLimit, data["restriction_type"])
	assert.Equal(t, false, data["permanent"])
	assert.Contains(t, data, "auto_unfreeze_at")
}

func TestCreateBooking_FrozenProviderRejected(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)

	require.NoError(t, ds.CreateProviderRestriction(frozenProviderRestriction(provider.ID, 1, inDays(30))))

	_, err := svc.CreateBooking(client.ID, dto.CreateBookingRequest{
		ProviderID:  provider.ID,
		ScheduledAt: time.Now().Add(48 * time.Hour),
	})
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestCreateBooking_PastScheduleRejected(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)

	_, err := svc.CreateBooking(client.ID, dto.CreateBookingRequest{
		ProviderID:  provider.ID,
		ScheduledAt: time.Now().Add(-time.Hour),
	})
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestCreateBooking_TargetMustBeProvider(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	otherClient := seedUser(t, ds, shared.RoleClient)

	_, err := svc.CreateBooking(client.ID, dto.CreateBookingRequest{
		ProviderID:  otherClient.ID,
		ScheduledAt: time.Now().Add(48 * time.Hour),
	})
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestCancelBooking_ClientCancellationCounts(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(48*time.Hour))

	resp, err := svc.CancelBooking(booking.ID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.BookingStatusCancelled, resp.Status)
	assert.Equal(t, client.ID, resp.CancelledBy)
	assert.NotNil(t, resp.CancelledAt)

	fresh, err := ds.GetUser(client.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.CancellationCount)
}

func TestCancelBooking_ProviderCancellationDoesNotCount(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(48*time.Hour))

	resp, err := svc.CancelBooking(booking.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.BookingStatusCancelled, resp.Status)

	fresh, err := ds.GetUser(client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.CancellationCount)
}

func TestCancelBooking_ThirdCancellationFreezes(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)

	for i := 0; i < 3; i++ {
		booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(48*time.Hour))
		_, err := svc.CancelBooking(booking.ID, client.ID)
		require.NoError(t, err)
	}

	active, err := ds.GetActiveBookingRestriction(client.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, shared.RestrictionCancellationLimit, active.RestrictionType)
	assert.Equal(t, 1, active.ViolationLevel)
}

func TestCancelBooking_Guards(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	stranger := seedUser(t, ds, shared.RoleClient)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(48*time.Hour))

	_, err := svc.CancelBooking(booking.ID, stranger.ID)
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)

	_, err = svc.CancelBooking(booking.ID, client.ID)
	require.NoError(t, err)

	_, err = svc.CancelBooking(booking.ID, client.ID)
	require.Error(t, err)
	appErr, ok = shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
}

func TestMarkNoShow(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(-time.Hour))

	resp, err := svc.MarkNoShow(booking.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.BookingStatusNoShow, resp.Status)
	assert.NotNil(t, resp.NoShowAt)

	fresh, err := ds.GetUser(client.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.NoShowCount)
}

func TestMarkNoShow_OnlyBookedProvider(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	other := seedUser(t, ds, shared.RoleProvider)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(-time.Hour))

	_, err := svc.MarkNoShow(booking.ID, other.ID)
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)
}

func TestMarkNoShow_BeforeScheduledTimeRejected(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(48*time.Hour))

	_, err := svc.MarkNoShow(booking.ID, provider.ID)
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestMarkNoShow_CancelledBookingRejected(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(-time.Hour))

	booking.Status = shared.BookingStatusCancelled
	require.NoError(t, ds.UpdateBooking(booking))

	_, err := svc.MarkNoShow(booking.ID, provider.ID)
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
}

func TestGetUserBookings(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	other := seedUser(t, ds, shared.RoleClient)

	seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(24*time.Hour))
	seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(48*time.Hour))
	seedBooking(t, ds, other.ID, provider.ID, time.Now().Add(72*time.Hour))

	list, err := svc.GetUserBookings(client.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	// The provider sees every booking they are party to.
	list, err = svc.GetUserBookings(provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
}

func TestGetBooking_RequiresParty(t *testing.T) {
	svc, ds := newTestBookingService(t)
	client := seedUser(t, ds, shared.RoleClient)
	provider := seedUser(t, ds, shared.RoleProvider)
	stranger := seedUser(t, ds, shared.RoleClient)
	booking := seedBooking(t, ds, client.ID, provider.ID, time.Now().Add(24*time.Hour))

	_, err := svc.GetBooking(booking.ID, stranger.ID)
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)

	got, err := svc.GetBooking(booking.ID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.BookingID)
}
