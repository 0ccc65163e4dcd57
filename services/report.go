package services

import (
	"errors"
	"fmt"
	"io"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

// ReportService accepts user reports against providers, dampens abuse of the
// reporting channel and feeds accepted reports into restriction escalation.
type ReportService struct {
	appContext.DefaultService

	sqlSvc         *PostgresService
	restrictionSvc *RestrictionService
	minioSvc       *MinIOService
}

const REPORT_SVC = "report_svc"

const (
	// Window in which repeat reports against the same target collapse into
	// the first one.
	reportDedupWindow = 24 * time.Hour

	// Per-reporter submission ceiling across all targets.
	reportRateWindow = time.Hour
	reportRateLimit  = 5

	evidenceURLExpiry = 7 * 24 * time.Hour
)

func (svc ReportService) Id() string {
	return REPORT_SVC
}

func (svc *ReportService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ReportService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.restrictionSvc = svc.Service(RESTRICTION_SVC).(*RestrictionService)
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)

	return nil
}

// SubmitReport records a report against a provider. A reporter's repeat
// report for the same target inside the dedup window returns the original
// report instead of creating a new one, and submissions past the hourly
// ceiling are rejected outright. All time checks share a single clock read.
func (svc *ReportService) SubmitReport(reporterID string, req dto.SubmitReportRequest) (*dto.ReportResponse, error) {
	now := time.Now()

	if reporterID == req.TargetID {
		return nil, shared.NewBadRequestError(nil, "You cannot report yourself")
	}

	target, err := svc.sqlSvc.GetUser(req.TargetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Reported user not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	if target.Role != shared.RoleProvider {
		return nil, shared.NewBadRequestError(nil, "Only providers can be reported")
	}

	existing, err := svc.sqlSvc.GetReportByReporterAndTarget(reporterID, req.TargetID, now.Add(-reportDedupWindow))
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	if existing != nil {
		reportsDeduplicatedTotal.Inc()
		return &dto.ReportResponse{
			ReportID:  existing.ID,
			Status:    existing.Status,
			Duplicate: true,
			CreatedAt: existing.CreatedAt,
		}, nil
	}

	recent, err := svc.sqlSvc.CountReportsByReporter(reporterID, now.Add(-reportRateWindow))
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}
	if recent >= reportRateLimit {
		reportsRateLimitedTotal.Inc()
		return nil, shared.NewTooManyRequestsError(nil, "Too many reports submitted, please try again later")
	}

	report := &model.Report{
		ID:          newID(),
		ReporterID:  reporterID,
		TargetID:    req.TargetID,
		Category:    req.Category,
		Description: req.Description,
		Status:      shared.ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := svc.sqlSvc.CreateReport(report); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	if _, err := svc.sqlSvc.IncrementReportCounters(req.TargetID, req.Category); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	reportsAcceptedTotal.WithLabelValues(req.Category).Inc()

	if _, err := svc.restrictionSvc.ProcessReportViolation(req.TargetID); err != nil {
		// The report itself is already stored, escalation can be retried
		// by the next report against this target.
		log.WithFields(log.Fields{
			"report_id": report.ID,
			"target_id": req.TargetID,
			"error":     err,
		}).Warn("report stored but restriction escalation failed")
	}

	return &dto.ReportResponse{
		ReportID:  report.ID,
		Status:    report.Status,
		Duplicate: false,
		CreatedAt: report.CreatedAt,
	}, nil
}

// AttachEvidence uploads an evidence object for a report the reporter owns
// and links it to the report row.
func (svc *ReportService) AttachEvidence(reportID, reporterID, filename string, reader io.Reader, size int64, contentType string) (*dto.EvidenceUploadResponse, error) {
	report, err := svc.sqlSvc.GetReport(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Report not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	if report.ReporterID != reporterID {
		return nil, shared.NewForbiddenError(nil, "You can only attach evidence to your own reports")
	}

	objectName := fmt.Sprintf("reports/%s/%s", reportID, filename)
	if _, err := svc.minioSvc.UploadFile(objectName, reader, size, contentType); err != nil {
		return nil, shared.NewInternalError(err, "Failed to store evidence")
	}

	report.EvidenceURL = objectName
	report.UpdatedAt = time.Now()
	if err := svc.sqlSvc.UpdateReport(report); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	url, err := svc.minioSvc.GetFileURL(objectName, evidenceURLExpiry)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to generate evidence URL")
	}

	return &dto.EvidenceUploadResponse{
		ReportID:    reportID,
		EvidenceURL: url,
	}, nil
}

// UpdateReportStatus is the moderation path, admin only.
func (svc *ReportService) UpdateReportStatus(reportID string, req dto.UpdateReportStatusRequest) (*dto.ReportDetailResponse, error) {
	report, err := svc.sqlSvc.GetReport(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Report not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	report.Status = req.Status
	report.AdminNote = req.AdminNote
	report.UpdatedAt = time.Now()

	if err := svc.sqlSvc.UpdateReport(report); err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	detail := svc.toDetail(report)
	return &detail, nil
}

func (svc *ReportService) GetReport(reportID string) (*dto.ReportDetailResponse, error) {
	report, err := svc.sqlSvc.GetReport(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Report not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	detail := svc.toDetail(report)
	return &detail, nil
}

func (svc *ReportService) GetReportsByTarget(targetID string) (*dto.ReportListResponse, error) {
	reports, err := svc.sqlSvc.GetReportsByTarget(targetID)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	out := make([]dto.ReportDetailResponse, 0, len(reports))
	for i := range reports {
		out = append(out, svc.toDetail(&reports[i]))
	}

	return &dto.ReportListResponse{Reports: out, Total: len(out)}, nil
}

func (svc *ReportService) toDetail(report *model.Report) dto.ReportDetailResponse {
	detail := dto.ReportDetailResponse{
		ReportID:    report.ID,
		ReporterID:  report.ReporterID,
		TargetID:    report.TargetID,
		Category:    report.Category,
		Description: report.Description,
		Status:      report.Status,
		AdminNote:   report.AdminNote,
		CreatedAt:   report.CreatedAt,
	}

	if report.EvidenceURL != "" {
		url, err := svc.minioSvc.GetFileURL(report.EvidenceURL, evidenceURLExpiry)
		if err != nil {
			log.WithFields(log.Fields{"report_id": report.ID, "error": err}).Warn("failed to presign evidence URL")
		} else {
			detail.EvidenceURL = url
		}
	}

	return detail
}
