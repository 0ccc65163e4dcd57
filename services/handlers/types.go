package handlers

import (
	"io"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/model"
)

type ReportServiceInterface interface {
	SubmitReport(reporterID string, req dto.SubmitReportRequest) (*dto.ReportResponse, error)
	AttachEvidence(reportID, reporterID, filename string, reader io.Reader, size int64, contentType string) (*dto.EvidenceUploadResponse, error)
	UpdateReportStatus(reportID string, req dto.UpdateReportStatusRequest) (*dto.ReportDetailResponse, error)
	GetReport(reportID string) (*dto.ReportDetailResponse, error)
	GetReportsByTarget(targetID string) (*dto.ReportListResponse, error)
}

type BookingServiceInterface interface {
	CreateBooking(clientID string, req dto.CreateBookingRequest) (*dto.BookingResponse, error)
	CancelBooking(bookingID, actorID string) (*dto.BookingResponse, error)
	MarkNoShow(bookingID, providerID string) (*dto.BookingResponse, error)
	GetBooking(bookingID, actorID string) (*dto.BookingResponse, error)
	GetUserBookings(userID string) (*dto.BookingListResponse, error)
}

type RestrictionServiceInterface interface {
	IsUserFrozen(userID string) (bool, *model.BookingRestriction, error)
	IsProviderFrozen(userID string) (bool, *model.ProviderRestriction, error)
	CreateManualBookingRestriction(userID, reason string, level int, permanent bool, notes string) (*model.BookingRestriction, error)
	CreateManualProviderRestriction(userID, reason string, level int, permanent bool, notes string) (*model.ProviderRestriction, error)
	UnfreezeBooking(id, unfrozenBy, notes string) (*model.BookingRestriction, error)
	UnfreezeProvider(id, unfrozenBy, notes string) (*model.ProviderRestriction, error)
	GetBookingRestrictions(userID string) ([]model.BookingRestriction, error)
	GetProviderRestrictions(userID string) ([]model.ProviderRestriction, error)
	GetAllBookingRestrictions(includeUnfrozen bool) ([]model.BookingRestriction, error)
	GetAllProviderRestrictions(includeUnfrozen bool) ([]model.ProviderRestriction, error)
}

type NotificationServiceInterface interface {
	GetUserNotifications(userID string, limit int) ([]model.Notification, error)
	MarkRead(id, userID string) error
}
