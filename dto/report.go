package dto

import "time"

// ==================== REPORT REQUEST DTOs ====================

type SubmitReportRequest struct {
	TargetID    string `json:"target_id" validate:"required" example:"0195f3a2-7c11-7e88-9f21-3d2b1a90c4e7"`
	Category    string `json:"category" validate:"required,oneof=scam not_real_person fake_profile other" example:"scam"`
	Description string `json:"description" validate:"omitempty,max=2000" example:"Asked me to pay outside the app"`
}

func (s SubmitReportRequest) Validate() error {
	return GetValidator().Struct(s)
}

type UpdateReportStatusRequest struct {
	Status    string `json:"status" validate:"required,oneof=pending reviewed resolved dismissed" example:"resolved"`
	AdminNote string `json:"admin_note" validate:"omitempty,max=2000" example:"Evidence confirmed, account restricted"`
}

func (u UpdateReportStatusRequest) Validate() error {
	return GetValidator().Struct(u)
}

// ==================== REPORT RESPONSE DTOs ====================

type ReportResponse struct {
	ReportID  string    `json:"report_id" example:"0195f3a2-7c11-7e88-9f21-3d2b1a90c4e7"`
	Status    string    `json:"status" example:"pending"`
	Duplicate bool      `json:"duplicate" example:"false"`
	CreatedAt time.Time `json:"created_at" example:"2025-01-15T10:30:00Z"`
}

type ReportDetailResponse struct {
	ReportID    string    `json:"report_id"`
	ReporterID  string    `json:"reporter_id"`
	TargetID    string    `json:"target_id"`
	Category    string    `json:"category" example:"scam"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status" example:"pending"`
	EvidenceURL string    `json:"evidence_url,omitempty"`
	AdminNote   string    `json:"admin_note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReportListResponse struct {
	Reports []ReportDetailResponse `json:"reports"`
	Total   int                    `json:"total" example:"3"`
}

type EvidenceUploadResponse struct {
	ReportID    string `json:"report_id"`
	EvidenceURL string `json:"evidence_url"`
}
