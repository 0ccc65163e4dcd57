package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

type ReportHandler struct {
	reportSvc ReportServiceInterface
}

func NewReportHandler(reportSvc ReportServiceInterface) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// @Summary Submit a report
// @Description Report a provider for scam, fake profile or other misconduct
// @Tags reports
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param report body dto.SubmitReportRequest true "Report details"
// @Success 201 {object} shared.Response{data=dto.ReportResponse}
// @Router /api/v1/reports [post]
func (h *ReportHandler) SubmitReport(c *fiber.Ctx) error {
	reporterID := c.Locals(shared.UserID).(string)

	var req dto.SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return shared.NewValidationFailedError(err, dto.FormatValidationErrors(err))
	}

	resp, err := h.reportSvc.SubmitReport(reporterID, req)
	if err != nil {
		return err
	}

	if resp.Duplicate {
		return shared.ResponseJSON(c, fiber.StatusOK, "Report already submitted", resp)
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Report submitted", resp)
}

// @Summary Attach evidence to a report
// @Description Upload an evidence file for a report you submitted
// @Tags reports
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param reportId path string true "Report ID"
// @Param file formData file true "Evidence file"
// @Success 200 {object} shared.Response{data=dto.EvidenceUploadResponse}
// @Router /api/v1/reports/{reportId}/evidence [post]
func (h *ReportHandler) AttachEvidence(c *fiber.Ctx) error {
	reporterID := c.Locals(shared.UserID).(string)
	reportID := c.Params("reportId")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return shared.NewBadRequestError(err, "Evidence file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return shared.NewBadRequestError(err, "Failed to read evidence file")
	}
	defer file.Close()

	resp, err := h.reportSvc.AttachEvidence(reportID, reporterID, fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Evidence uploaded", resp)
}

// @Summary Get a report
// @Description Get a report by ID, admin only
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param reportId path string true "Report ID"
// @Success 200 {object} shared.Response{data=dto.ReportDetailResponse}
// @Router /api/v1/admin/reports/{reportId} [get]
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	resp, err := h.reportSvc.GetReport(c.Params("reportId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary List reports against a user
// @Description List all reports filed against a target, admin only
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param userId path string true "Target user ID"
// @Success 200 {object} shared.Response{data=dto.ReportListResponse}
// @Router /api/v1/admin/users/{userId}/reports [get]
func (h *ReportHandler) GetReportsByTarget(c *fiber.Ctx) error {
	resp, err := h.reportSvc.GetReportsByTarget(c.Params("userId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Update report status
// @Description Move a report through the moderation workflow, admin only
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param reportId path string true "Report ID"
// @Param update body dto.UpdateReportStatusRequest true "New status"
// @Success 200 {object} shared.Response{data=dto.ReportDetailResponse}
// @Router /api/v1/admin/reports/{reportId} [put]
func (h *ReportHandler) UpdateReportStatus(c *fiber.Ctx) error {
	var req dto.UpdateReportStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return shared.NewValidationFailedError(err, dto.FormatValidationErrors(err))
	}

	resp, err := h.reportSvc.UpdateReportStatus(c.Params("reportId"), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Report updated", resp)
}
