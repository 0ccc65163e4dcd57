package services

import (
	"errors"
	"time"

	appContext "github.com/alphabatem/common/context"
	"gorm.io/gorm"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

// BookingService owns the booking lifecycle. Frozen accounts are rejected at
// the gate, and client-side cancellations and no-shows feed the violation
// counters.
type BookingService struct {
	appContext.DefaultService

	sqlSvc         *PostgresService
	restrictionSvc *RestrictionService
}

const BOOKING_SVC = "booking_svc"

func (svc BookingService) Id() string {
	return BOOKING_SVC
}

func (svc *BookingService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.restrictionSvc = svc.Service(RESTRICTION_SVC).(*RestrictionService)

	return nil
}

// CreateBooking rejects frozen clients and frozen providers before anything
// is written.
func (svc *BookingService) CreateBooking(clientID string, req dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	frozen, restriction, err := svc.restrictionSvc.IsUserFrozen(clientID)
	if err != nil {
		return nil, err
	}
	if frozen {
		frozenActionRejectionsTotal.WithLabelValues(clientFamily).Inc()
		return nil, shared.NewFrozenError("Your account is restricted from booking", freezeStatusData(restriction.Restriction))
	}

	provider, err := svc.sqlSvc.GetUser(req.ProviderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Provider not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}
	if provider.Role != shared.RoleProvider {
		return nil, shared.NewBadRequestError(nil, "Bookings can only target providers")
	}

	providerFrozen, _, err := svc.restrictionSvc.IsProviderFrozen(req.ProviderID)
	if err != nil {
		return nil, err
	}
	if providerFrozen {
		frozenActionRejectionsTotal.WithLabelValues(providerFamily).Inc()
		return nil, shared.NewBadRequestError(nil, "This provider is not accepting bookings right now")
	}

	if req.ScheduledAt.Before(time.Now()) {
		return nil, shared.NewBadRequestError(nil, "Bookings must be scheduled in the future")
	}

	booking := &model.Booking{
		ID:          newID(),
		ClientID:    clientID,
		ProviderID:  req.ProviderID,
		Status:      shared.BookingStatusConfirmed,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	}

	if _, err := svc.sqlSvc.CreateBooking(booking); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	resp := toBookingResponse(booking)
	return &resp, nil
}

// CancelBooking cancels on behalf of either party. A client cancellation
// counts against the client's cancellation limit; provider cancellations do
// not.
func (svc *BookingService) CancelBooking(bookingID, actorID string) (*dto.BookingResponse, error) {
	booking, err := svc.getOwnedBooking(bookingID, actorID)
	if err != nil {
		return nil, err
	}

	if booking.Status == shared.BookingStatusCancelled {
		return nil, shared.NewConflictError(nil, "Booking is already cancelled")
	}
	if booking.Status == shared.BookingStatusCompleted || booking.Status == shared.BookingStatusNoShow {
		return nil, shared.NewConflictError(nil, "Booking can no longer be cancelled")
	}

	now := time.Now()
	booking.Status = shared.BookingStatusCancelled
	booking.CancelledAt = &now
	booking.CancelledBy = actorID

	if err := svc.sqlSvc.UpdateBooking(booking); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	if actorID == booking.ClientID {
		if _, err := svc.restrictionSvc.ProcessCancellationViolation(booking.ClientID); err != nil {
			return nil, err
		}
	}

	resp := toBookingResponse(booking)
	return &resp, nil
}

// MarkNoShow is provider only, and only once the booking's scheduled time
// has passed.
func (svc *BookingService) MarkNoShow(bookingID, providerID string) (*dto.BookingResponse, error) {
	booking, err := svc.getBooking(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.ProviderID != providerID {
		return nil, shared.NewForbiddenError(nil, "Only the booked provider can mark a no-show")
	}
	if booking.Status != shared.BookingStatusConfirmed {
		return nil, shared.NewConflictError(nil, "Only confirmed bookings can be marked as no-show")
	}

	now := time.Now()
	if booking.ScheduledAt.After(now) {
		return nil, shared.NewBadRequestError(nil, "Booking has not started yet")
	}

	booking.Status = shared.BookingStatusNoShow
	booking.NoShowAt = &now

	if err := svc.sqlSvc.UpdateBooking(booking); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	if _, err := svc.restrictionSvc.ProcessNoShowViolation(booking.ClientID); err != nil {
		return nil, err
	}

	resp := toBookingResponse(booking)
	return &resp, nil
}

func (svc *BookingService) GetBooking(bookingID, actorID string) (*dto.BookingResponse, error) {
	booking, err := svc.getOwnedBooking(bookingID, actorID)
	if err != nil {
		return nil, err
	}

	resp := toBookingResponse(booking)
	return &resp, nil
}

func (svc *BookingService) GetUserBookings(userID string) (*dto.BookingListResponse, error) {
	bookings, err := svc.sqlSvc.GetBookingsByUser(userID)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	out := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}

	return &dto.BookingListResponse{Bookings: out, Total: len(out)}, nil
}

func (svc *BookingService) getBooking(bookingID string) (*model.Booking, error) {
	booking, err := svc.sqlSvc.GetBooking(bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Booking not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}
	return booking, nil
}

func (svc *BookingService) getOwnedBooking(bookingID, actorID string) (*model.Booking, error) {
	booking, err := svc.getBooking(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.ClientID != actorID && booking.ProviderID != actorID {
		return nil, shared.NewForbiddenError(nil, "You are not a party to this booking")
	}

	return booking, nil
}

func toBookingResponse(b *model.Booking) dto.BookingResponse {
	return dto.BookingResponse{
		BookingID:   b.ID,
		ClientID:    b.ClientID,
		ProviderID:  b.ProviderID,
		Status:      b.Status,
		ScheduledAt: b.ScheduledAt,
		CancelledAt: b.CancelledAt,
		CancelledBy: b.CancelledBy,
		NoShowAt:    b.NoShowAt,
		CreatedAt:   b.CreatedAt,
	}
}

// freezeStatusData is the only restriction detail surfaced to a rejected
// caller. Reporter identity never appears here.
func freezeStatusData(r model.Restriction) map[string]interface{} {
	data := map[string]interface{}{
		"restriction_type": r.RestrictionType,
		"violation_level":  r.ViolationLevel,
		"permanent":        r.IsPermanent(),
	}
	if r.AutoUnfreezeAt != nil {
		data["auto_unfreeze_at"] = r.AutoUnfreezeAt.Format(time.RFC3339)
	}
	return data
}
