package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

type RestrictionHandler struct {
	restrictionSvc RestrictionServiceInterface
}

func NewRestrictionHandler(restrictionSvc RestrictionServiceInterface) *RestrictionHandler {
	return &RestrictionHandler{restrictionSvc: restrictionSvc}
}

// @Summary Get freeze status
// @Description Check whether your account is currently frozen
// @Tags account
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param family query string false "Restriction family" Enums(client, provider) default(client)
// @Success 200 {object} shared.Response{data=dto.FreezeStatusResponse}
// @Router /api/v1/account/freeze-status [get]
func (h *RestrictionHandler) GetFreezeStatus(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	return h.freezeStatus(c, userID, c.Query("family", "client"))
}

// @Summary Get a user's freeze status
// @Description Check whether any user's account is currently frozen, admin only
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param userId path string true "User ID"
// @Param family query string false "Restriction family" Enums(client, provider) default(client)
// @Success 200 {object} shared.Response{data=dto.FreezeStatusResponse}
// @Router /api/v1/admin/users/{userId}/freeze-status [get]
func (h *RestrictionHandler) GetUserFreezeStatus(c *fiber.Ctx) error {
	return h.freezeStatus(c, c.Params("userId"), c.Query("family", "client"))
}

func (h *RestrictionHandler) freezeStatus(c *fiber.Ctx, userID, family string) error {
	status := dto.FreezeStatusResponse{UserID: userID}

	switch family {
	case "client":
		frozen, restriction, err := h.restrictionSvc.IsUserFrozen(userID)
		if err != nil {
			return err
		}
		if frozen {
			fillFreezeStatus(&status, &restriction.Restriction)
		}
	case "provider":
		frozen, restriction, err := h.restrictionSvc.IsProviderFrozen(userID)
		if err != nil {
			return err
		}
		if frozen {
			fillFreezeStatus(&status, &restriction.Restriction)
		}
	default:
		return shared.NewBadRequestError(nil, "Family must be client or provider")
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", status)
}

// @Summary List a user's restriction history
// @Description Full restriction history across both families, admin only
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param userId path string true "User ID"
// @Success 200 {object} shared.Response{data=dto.RestrictionListResponse}
// @Router /api/v1/admin/users/{userId}/restrictions [get]
func (h *RestrictionHandler) GetUserRestrictions(c *fiber.Ctx) error {
	userID := c.Params("userId")

	bookings, err := h.restrictionSvc.GetBookingRestrictions(userID)
	if err != nil {
		return err
	}

	providers, err := h.restrictionSvc.GetProviderRestrictions(userID)
	if err != nil {
		return err
	}

	out := make([]dto.RestrictionResponse, 0, len(bookings)+len(providers))
	for i := range bookings {
		out = append(out, toRestrictionResponse(&bookings[i].Restriction))
	}
	for i := range providers {
		out = append(out, toRestrictionResponse(&providers[i].Restriction))
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", dto.RestrictionListResponse{
		Restrictions: out,
		Total:        len(out),
	})
}

// @Summary List restrictions
// @Description List restrictions in a family, admin only
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param family path string true "Restriction family" Enums(client, provider)
// @Param include_unfrozen query bool false "Include lifted restrictions"
// @Success 200 {object} shared.Response{data=dto.RestrictionListResponse}
// @Router /api/v1/admin/restrictions/{family} [get]
func (h *RestrictionHandler) ListRestrictions(c *fiber.Ctx) error {
	includeUnfrozen := c.QueryBool("include_unfrozen")

	var out []dto.RestrictionResponse

	switch c.Params("family") {
	case "client":
		rows, err := h.restrictionSvc.GetAllBookingRestrictions(includeUnfrozen)
		if err != nil {
			return err
		}
		out = make([]dto.RestrictionResponse, 0, len(rows))
		for i := range rows {
			out = append(out, toRestrictionResponse(&rows[i].Restriction))
		}
	case "provider":
		rows, err := h.restrictionSvc.GetAllProviderRestrictions(includeUnfrozen)
		if err != nil {
			return err
		}
		out = make([]dto.RestrictionResponse, 0, len(rows))
		for i := range rows {
			out = append(out, toRestrictionResponse(&rows[i].Restriction))
		}
	default:
		return shared.NewBadRequestError(nil, "Family must be client or provider")
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", dto.RestrictionListResponse{
		Restrictions: out,
		Total:        len(out),
	})
}

// @Summary Create a manual restriction
// @Description Freeze a user by hand, admin only
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param restriction body dto.ManualRestrictionRequest true "Restriction details"
// @Success 201 {object} shared.Response{data=dto.RestrictionResponse}
// @Router /api/v1/admin/restrictions [post]
func (h *RestrictionHandler) CreateManualRestriction(c *fiber.Ctx) error {
	var req dto.ManualRestrictionRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return shared.NewValidationFailedError(err, dto.FormatValidationErrors(err))
	}

	var restriction *model.Restriction

	switch req.Family {
	case "client":
		created, err := h.restrictionSvc.CreateManualBookingRestriction(req.UserID, req.Reason, req.ViolationLevel, req.Permanent, req.Notes)
		if err != nil {
			return err
		}
		restriction = &created.Restriction
	case "provider":
		created, err := h.restrictionSvc.CreateManualProviderRestriction(req.UserID, req.Reason, req.ViolationLevel, req.Permanent, req.Notes)
		if err != nil {
			return err
		}
		restriction = &created.Restriction
	default:
		return shared.NewBadRequestError(nil, "Family must be client or provider")
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Restriction created", toRestrictionResponse(restriction))
}

// @Summary Unfreeze a restriction
// @Description Lift an active restriction, admin only. Lifting an already lifted restriction is a no-op.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param family path string true "Restriction family" Enums(client, provider)
// @Param restrictionId path string true "Restriction ID"
// @Param unfreeze body dto.UnfreezeRequest false "Unfreeze notes"
// @Success 200 {object} shared.Response{data=dto.RestrictionResponse}
// @Router /api/v1/admin/restrictions/{family}/{restrictionId}/unfreeze [post]
func (h *RestrictionHandler) Unfreeze(c *fiber.Ctx) error {
	adminID := c.Locals(shared.UserID).(string)
	restrictionID := c.Params("restrictionId")

	var req dto.UnfreezeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request")
		}
	}

	var restriction *model.Restriction

	switch c.Params("family") {
	case "client":
		lifted, err := h.restrictionSvc.UnfreezeBooking(restrictionID, adminID, req.Notes)
		if err != nil {
			return err
		}
		if lifted == nil {
			return shared.NewNotFoundError(nil, "Restriction not found")
		}
		restriction = &lifted.Restriction
	case "provider":
		lifted, err := h.restrictionSvc.UnfreezeProvider(restrictionID, adminID, req.Notes)
		if err != nil {
			return err
		}
		if lifted == nil {
			return shared.NewNotFoundError(nil, "Restriction not found")
		}
		restriction = &lifted.Restriction
	default:
		return shared.NewBadRequestError(nil, "Family must be client or provider")
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Restriction lifted", toRestrictionResponse(restriction))
}

func fillFreezeStatus(status *dto.FreezeStatusResponse, r *model.Restriction) {
	status.Frozen = true
	status.RestrictionID = r.ID
	status.Type = r.RestrictionType
	status.ViolationLevel = r.ViolationLevel
	status.Reason = r.Reason
	status.Permanent = r.IsPermanent()
	status.AutoUnfreezeAt = r.AutoUnfreezeAt
}

func toRestrictionResponse(r *model.Restriction) dto.RestrictionResponse {
	return dto.RestrictionResponse{
		RestrictionID:  r.ID,
		UserID:         r.UserID,
		Type:           r.RestrictionType,
		Reason:         r.Reason,
		ViolationLevel: r.ViolationLevel,
		Frozen:         r.IsFrozen,
		Permanent:      r.IsPermanent(),
		FrozenAt:       r.FrozenAt,
		AutoUnfreezeAt: r.AutoUnfreezeAt,
		UnfrozenAt:     r.UnfrozenAt,
		UnfrozenBy:     r.UnfrozenBy,
		Notes:          r.Notes,
	}
}
