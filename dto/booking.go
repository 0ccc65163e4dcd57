package dto

import "time"

// ==================== BOOKING REQUEST DTOs ====================

type CreateBookingRequest struct {
	ProviderID  string    `json:"provider_id" validate:"required" example:"0195f3a2-7c11-7e88-9f21-3d2b1a90c4e7"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required" example:"2025-02-01T18:00:00Z"`
	Notes       string    `json:"notes" validate:"omitempty,max=500" example:"Table for two"`
}

func (c CreateBookingRequest) Validate() error {
	return GetValidator().Struct(c)
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500" example:"Schedule conflict"`
}

func (c CancelBookingRequest) Validate() error {
	return GetValidator().Struct(c)
}

// ==================== BOOKING RESPONSE DTOs ====================

type BookingResponse struct {
	BookingID   string     `json:"booking_id"`
	ClientID    string     `json:"client_id"`
	ProviderID  string     `json:"provider_id"`
	Status      string     `json:"status" example:"confirmed"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
	NoShowAt    *time.Time `json:"no_show_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total" example:"5"`
}
