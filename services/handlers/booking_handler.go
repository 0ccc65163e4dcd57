package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

type BookingHandler struct {
	bookingSvc BookingServiceInterface
}

func NewBookingHandler(bookingSvc BookingServiceInterface) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// @Summary Create a booking
// @Description Book a provider. Frozen accounts are rejected.
// @Tags bookings
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param booking body dto.CreateBookingRequest true "Booking details"
// @Success 201 {object} shared.Response{data=dto.BookingResponse}
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	clientID := c.Locals(shared.UserID).(string)

	var req dto.CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return shared.NewValidationFailedError(err, dto.FormatValidationErrors(err))
	}

	resp, err := h.bookingSvc.CreateBooking(clientID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Booking created", resp)
}

// @Summary Cancel a booking
// @Description Cancel a booking you are a party to. Client cancellations count towards the cancellation limit.
// @Tags bookings
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} shared.Response{data=dto.BookingResponse}
// @Router /api/v1/bookings/{bookingId}/cancel [post]
func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	actorID := c.Locals(shared.UserID).(string)

	resp, err := h.bookingSvc.CancelBooking(c.Params("bookingId"), actorID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Booking cancelled", resp)
}

// @Summary Mark a no-show
// @Description Provider marks a confirmed past booking as a client no-show
// @Tags bookings
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Provider Bearer Token" default(Bearer <provider_token>)
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} shared.Response{data=dto.BookingResponse}
// @Router /api/v1/bookings/{bookingId}/no-show [post]
func (h *BookingHandler) MarkNoShow(c *fiber.Ctx) error {
	providerID := c.Locals(shared.UserID).(string)

	resp, err := h.bookingSvc.MarkNoShow(c.Params("bookingId"), providerID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "No-show recorded", resp)
}

// @Summary Get a booking
// @Description Get a booking you are a party to
// @Tags bookings
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} shared.Response{data=dto.BookingResponse}
// @Router /api/v1/bookings/{bookingId} [get]
func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	actorID := c.Locals(shared.UserID).(string)

	resp, err := h.bookingSvc.GetBooking(c.Params("bookingId"), actorID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary List my bookings
// @Description List bookings where you are the client or the provider
// @Tags bookings
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.BookingListResponse}
// @Router /api/v1/bookings [get]
func (h *BookingHandler) GetUserBookings(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.bookingSvc.GetUserBookings(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}
