package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

const POSTGRES_SVC = "postgres_svc"

// ErrRestrictionActive is returned when a concurrent writer lost the race to
// open a restriction: the partial unique index rejected a second frozen row
// for the same user. Callers treat it as "restriction already active".
var ErrRestrictionActive = errors.New("an active restriction already exists for this user")

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		// Fallback to individual environment variables
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "drinktea_api"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		timezone := os.Getenv("DB_TIMEZONE")
		if timezone == "" {
			timezone = "UTC"
		}

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbname, port, sslmode, timezone)
	}

	return ds.DefaultService.Configure(ctx)
}

func (ds *PostgresService) Start() (err error) {
	// Retry connection with exponential backoff
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					log.Println("Successfully connected to database")
					break
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	if err := ds.migrate(); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	ticker := time.NewTicker(24 * time.Hour)
	go func() {
		for range ticker.C {
			if err := ds.CleanupOldRateLimits(); err != nil {
				log.Printf("Failed to cleanup expired rate limit records: %v", err)
			}
		}
	}()

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *PostgresService) migrate() error {
	models := []interface{}{
		&model.User{},
		&model.Booking{},
		&model.Report{},
		&model.BookingRestriction{},
		&model.ProviderRestriction{},
		&model.Notification{},
		&model.RateLimit{},
	}

	if err := ds.db.AutoMigrate(models...); err != nil {
		return err
	}

	// "At most one frozen restriction per user" is enforced at the database,
	// not just by the check-then-create sequence: two near-simultaneous
	// violations for the same user can both observe no active restriction.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_booking_restrictions_active_user
			ON booking_restrictions (user_id) WHERE is_frozen`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_provider_restrictions_active_user
			ON provider_restrictions (user_id) WHERE is_frozen`,
	}
	for _, stmt := range indexes {
		if err := ds.db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

func (ds *PostgresService) Shutdown() {
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound // 404
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict // 409
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest // 400
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError // 500
		errorType = "TRANSACTION_ERROR"
	default:
		if isUniqueViolation(err) {
			statusCode = http.StatusConflict // 409
			errorType = "UNIQUE_CONSTRAINT"
		} else if strings.Contains(err.Error(), "relation") && strings.Contains(err.Error(), "does not exist") {
			statusCode = http.StatusInternalServerError // 500
			errorType = "SCHEMA_ERROR"
		} else if strings.Contains(err.Error(), "connection refused") {
			statusCode = http.StatusServiceUnavailable // 503
			errorType = "DATABASE_CONNECTION_ERROR"
		} else {
			statusCode = http.StatusInternalServerError // 500
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// ==================== USERS ====================

func (ds *PostgresService) GetUser(userID string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *PostgresService) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *PostgresService) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *PostgresService) CreateUser(user *model.User) (*model.User, error) {
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if err := ds.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (ds *PostgresService) UpdateUser(user *model.User) error {
	user.UpdatedAt = time.Now()
	return ds.db.Save(user).Error
}

// UpdateUserFlags writes only the denormalized badge/freeze columns.
func (ds *PostgresService) UpdateUserFlags(userID string, flags map[string]interface{}) error {
	flags["updated_at"] = time.Now()
	return ds.db.Model(&model.User{}).Where("id = ?", userID).Updates(flags).Error
}

// IncrementUserCounter bumps one lifetime violation counter and returns the
// user with the new value. The increment happens in the database so two
// concurrent events never read-modify-write the same value.
func (ds *PostgresService) IncrementUserCounter(userID, column string) (*model.User, error) {
	res := ds.db.Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return ds.GetUser(userID)
}

// IncrementReportCounters bumps the target's total report counter plus the
// category-specific one in a single statement, and returns the fresh user.
func (ds *PostgresService) IncrementReportCounters(userID, category string) (*model.User, error) {
	updates := map[string]interface{}{
		"report_count": gorm.Expr("report_count + 1"),
		"updated_at":   time.Now(),
	}
	switch category {
	case shared.ReportCategoryScam:
		updates["scam_report_count"] = gorm.Expr("scam_report_count + 1")
	case shared.ReportCategoryNotRealPerson:
		updates["not_real_person_count"] = gorm.Expr("not_real_person_count + 1")
	case shared.ReportCategoryFakeProfile:
		updates["fake_profile_count"] = gorm.Expr("fake_profile_count + 1")
	}

	res := ds.db.Model(&model.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return ds.GetUser(userID)
}

// ==================== RESTRICTIONS (generic helpers) ====================

// The two restriction families are the same state machine over different
// policy tables, so the queries are written once and instantiated per table.

type restrictionRow interface {
	model.BookingRestriction | model.ProviderRestriction
}

func createRestriction[T restrictionRow](db *gorm.DB, row *T) error {
	if err := db.Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrRestrictionActive
		}
		return err
	}
	return nil
}

func restrictionByID[T restrictionRow](db *gorm.DB, id string) (*T, error) {
	var row T
	err := db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func activeRestriction[T restrictionRow](db *gorm.DB, userID string) (*T, error) {
	var row T
	err := db.Where("user_id = ? AND is_frozen = ?", userID, true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func restrictionHistory[T restrictionRow](db *gorm.DB, userID string) ([]T, error) {
	var rows []T
	err := db.Where("user_id = ?", userID).Order("frozen_at desc").Find(&rows).Error
	return rows, err
}

func allRestrictions[T restrictionRow](db *gorm.DB, includeUnfrozen bool) ([]T, error) {
	var rows []T
	q := db.Order("frozen_at desc")
	if !includeUnfrozen {
		q = q.Where("is_frozen = ?", true)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func maxViolationLevel[T restrictionRow](db *gorm.DB, userID, restrictionType string) (int, error) {
	var row T
	var level int
	err := db.Model(&row).
		Where("user_id = ? AND restriction_type = ?", userID, restrictionType).
		Select("COALESCE(MAX(violation_level), 0)").
		Scan(&level).Error
	return level, err
}

// unfreezeRestriction clears the frozen flag and stamps the attribution. The
// bool reports whether this call actually lifted the row: a second call on
// the same id matches nothing and returns the already-unfrozen row with
// false, so callers skip the unfreeze side effects. An unknown id returns
// nil, false, nil.
func unfreezeRestriction[T restrictionRow](db *gorm.DB, id, unfrozenBy, notes string) (*T, bool, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"is_frozen":   false,
		"unfrozen_at": now,
		"unfrozen_by": unfrozenBy,
		"updated_at":  now,
	}
	if notes != "" {
		updates["notes"] = notes
	}

	var row T
	res := db.Model(&row).Where("id = ? AND is_frozen = ?", id, true).Updates(updates)
	if res.Error != nil {
		return nil, false, res.Error
	}

	r, err := restrictionByID[T](db, id)
	if err != nil {
		return nil, false, err
	}
	return r, res.RowsAffected > 0, nil
}

// autoUnfreezeDue bulk-unfreezes every due restriction, attributed to the
// system. Permanent rows (auto_unfreeze_at IS NULL) are never touched. Safe
// to run concurrently with itself: a second sweep matches zero rows.
func autoUnfreezeDue[T restrictionRow](db *gorm.DB, now time.Time) (int64, error) {
	var row T
	res := db.Model(&row).
		Where("is_frozen = ? AND auto_unfreeze_at IS NOT NULL AND auto_unfreeze_at <= ?", true, now).
		Updates(map[string]interface{}{
			"is_frozen":   false,
			"unfrozen_at": now,
			"unfrozen_by": shared.UnfrozenBySystem,
			"updated_at":  now,
		})
	return res.RowsAffected, res.Error
}

// dueRestrictions lists frozen rows whose scheduled unfreeze time has passed.
// The sweep reads these before the bulk update so it knows which users need
// their denormalized flags cleared and an unfreeze notice sent.
func dueRestrictions[T restrictionRow](db *gorm.DB, now time.Time) ([]T, error) {
	var rows []T
	err := db.
		Where("is_frozen = ? AND auto_unfreeze_at IS NOT NULL AND auto_unfreeze_at <= ?", true, now).
		Find(&rows).Error
	return rows, err
}

// pendingAutoUnfreeze lists restrictions due to unfreeze within daysBefore
// days, for advance notices. Excludes past-due and permanent rows.
func pendingAutoUnfreeze[T restrictionRow](db *gorm.DB, now time.Time, daysBefore int) ([]T, error) {
	deadline := now.AddDate(0, 0, daysBefore)
	var rows []T
	err := db.
		Where("is_frozen = ? AND auto_unfreeze_at > ? AND auto_unfreeze_at <= ?", true, now, deadline).
		Order("auto_unfreeze_at asc").
		Find(&rows).Error
	return rows, err
}

// ==================== BOOKING RESTRICTIONS ====================

func (ds *PostgresService) CreateBookingRestriction(r *model.BookingRestriction) error {
	return createRestriction(ds.db, r)
}

func (ds *PostgresService) GetBookingRestriction(id string) (*model.BookingRestriction, error) {
	return restrictionByID[model.BookingRestriction](ds.db, id)
}

func (ds *PostgresService) GetActiveBookingRestriction(userID string) (*model.BookingRestriction, error) {
	return activeRestriction[model.BookingRestriction](ds.db, userID)
}

func (ds *PostgresService) GetBookingRestrictions(userID string) ([]model.BookingRestriction, error) {
	return restrictionHistory[model.BookingRestriction](ds.db, userID)
}

func (ds *PostgresService) GetAllBookingRestrictions(includeUnfrozen bool) ([]model.BookingRestriction, error) {
	return allRestrictions[model.BookingRestriction](ds.db, includeUnfrozen)
}

func (ds *PostgresService) MaxBookingViolationLevel(userID, restrictionType string) (int, error) {
	return maxViolationLevel[model.BookingRestriction](ds.db, userID, restrictionType)
}

func (ds *PostgresService) UnfreezeBookingRestriction(id, unfrozenBy, notes string) (*model.BookingRestriction, bool, error) {
	return unfreezeRestriction[model.BookingRestriction](ds.db, id, unfrozenBy, notes)
}

func (ds *PostgresService) AutoUnfreezeBookingRestrictions(now time.Time) (int64, error) {
	return autoUnfreezeDue[model.BookingRestriction](ds.db, now)
}

func (ds *PostgresService) DueBookingRestrictions(now time.Time) ([]model.BookingRestriction, error) {
	return dueRestrictions[model.BookingRestriction](ds.db, now)
}

func (ds *PostgresService) PendingBookingAutoUnfreeze(now time.Time, daysBefore int) ([]model.BookingRestriction, error) {
	return pendingAutoUnfreeze[model.BookingRestriction](ds.db, now, daysBefore)
}

// ==================== PROVIDER RESTRICTIONS ====================

func (ds *PostgresService) CreateProviderRestriction(r *model.ProviderRestriction) error {
	return createRestriction(ds.db, r)
}

func (ds *PostgresService) GetProviderRestriction(id string) (*model.ProviderRestriction, error) {
	return restrictionByID[model.ProviderRestriction](ds.db, id)
}

func (ds *PostgresService) GetActiveProviderRestriction(userID string) (*model.ProviderRestriction, error) {
	return activeRestriction[model.ProviderRestriction](ds.db, userID)
}

func (ds *PostgresService) GetProviderRestrictions(userID string) ([]model.ProviderRestriction, error) {
	return restrictionHistory[model.ProviderRestriction](ds.db, userID)
}

func (ds *PostgresService) GetAllProviderRestrictions(includeUnfrozen bool) ([]model.ProviderRestriction, error) {
	return allRestrictions[model.ProviderRestriction](ds.db, includeUnfrozen)
}

func (ds *PostgresService) MaxProviderViolationLevel(userID, restrictionType string) (int, error) {
	return maxViolationLevel[model.ProviderRestriction](ds.db, userID, restrictionType)
}

func (ds *PostgresService) UnfreezeProviderRestriction(id, unfrozenBy, notes string) (*model.ProviderRestriction, bool, error) {
	return unfreezeRestriction[model.ProviderRestriction](ds.db, id, unfrozenBy, notes)
}

func (ds *PostgresService) AutoUnfreezeProviderRestrictions(now time.Time) (int64, error) {
	return autoUnfreezeDue[model.ProviderRestriction](ds.db, now)
}

func (ds *PostgresService) DueProviderRestrictions(now time.Time) ([]model.ProviderRestriction, error) {
	return dueRestrictions[model.ProviderRestriction](ds.db, now)
}

func (ds *PostgresService) PendingProviderAutoUnfreeze(now time.Time, daysBefore int) ([]model.ProviderRestriction, error) {
	return pendingAutoUnfreeze[model.ProviderRestriction](ds.db, now, daysBefore)
}

// ==================== REPORTS ====================

func (ds *PostgresService) CreateReport(report *model.Report) (*model.Report, error) {
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	if err := ds.db.Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (ds *PostgresService) GetReport(id string) (*model.Report, error) {
	var report model.Report
	if err := ds.db.Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (ds *PostgresService) UpdateReport(report *model.Report) error {
	report.UpdatedAt = time.Now()
	return ds.db.Save(report).Error
}

// GetReportByReporterAndTarget returns the most recent report the reporter
// filed against the target since the given time, or nil.
func (ds *PostgresService) GetReportByReporterAndTarget(reporterID, targetID string, since time.Time) (*model.Report, error) {
	var report model.Report
	err := ds.db.
		Where("reporter_id = ? AND target_id = ? AND created_at >= ?", reporterID, targetID, since).
		Order("created_at desc").
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (ds *PostgresService) CountReportsByReporter(reporterID string, since time.Time) (int64, error) {
	var count int64
	err := ds.db.Model(&model.Report{}).
		Where("reporter_id = ? AND created_at >= ?", reporterID, since).
		Count(&count).Error
	return count, err
}

func (ds *PostgresService) GetReportsByTarget(targetID string) ([]model.Report, error) {
	var reports []model.Report
	err := ds.db.Where("target_id = ?", targetID).Order("created_at desc").Find(&reports).Error
	return reports, err
}

// ==================== BOOKINGS ====================

func (ds *PostgresService) CreateBooking(booking *model.Booking) (*model.Booking, error) {
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	if err := ds.db.Create(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

func (ds *PostgresService) GetBooking(id string) (*model.Booking, error) {
	var booking model.Booking
	if err := ds.db.Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (ds *PostgresService) UpdateBooking(booking *model.Booking) error {
	booking.UpdatedAt = time.Now()
	return ds.db.Save(booking).Error
}

func (ds *PostgresService) GetBookingsByUser(userID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := ds.db.
		Where("client_id = ? OR provider_id = ?", userID, userID).
		Order("scheduled_at desc").
		Find(&bookings).Error
	return bookings, err
}

// ==================== NOTIFICATIONS ====================

func (ds *PostgresService) CreateNotification(n *model.Notification) error {
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	return ds.db.Create(n).Error
}

func (ds *PostgresService) GetNotifications(userID string, limit int) ([]model.Notification, error) {
	var notifications []model.Notification
	q := ds.db.Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&notifications).Error
	return notifications, err
}

func (ds *PostgresService) MarkNotificationRead(id, userID string) error {
	return ds.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "updated_at": time.Now()}).Error
}

// ==================== RATE LIMITS ====================

func (ds *PostgresService) GetRateLimit(identifier, endpointType string) (*model.RateLimit, error) {
	var rateLimit model.RateLimit
	err := ds.db.
		Where("identifier = ? AND endpoint_type = ?", identifier, endpointType).
		First(&rateLimit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rateLimit, nil
}

func (ds *PostgresService) SaveRateLimit(rateLimit *model.RateLimit) error {
	if rateLimit.ID == "" {
		rateLimit.ID = newID()
	}
	return ds.db.Save(rateLimit).Error
}

func (ds *PostgresService) UpdateRateLimit(rateLimit *model.RateLimit) error {
	return ds.db.Save(rateLimit).Error
}

// CleanupOldRateLimits drops windows that expired more than a day ago.
func (ds *PostgresService) CleanupOldRateLimits() error {
	cutoff := time.Now().Add(-24 * time.Hour)
	return ds.db.
		Where("window_start < ? AND (blocked_until IS NULL OR blocked_until < ?)", cutoff, time.Now()).
		Delete(&model.RateLimit{}).Error
}
