package shared

const (
	UserID   = "user_id"
	UserRole = "user_role"

	RoleClient   = "client"
	RoleProvider = "provider"
	RoleAdmin    = "admin"

	// Client (booking) restriction types
	RestrictionCancellationLimit = "cancellation_limit"
	RestrictionNoShow            = "no_show"
	RestrictionManual            = "manual"

	// Provider restriction types
	RestrictionReportLimit     = "report_limit"
	RestrictionSevereViolation = "severe_violation"

	// Report categories
	ReportCategoryScam          = "scam"
	ReportCategoryNotRealPerson = "not_real_person"
	ReportCategoryFakeProfile   = "fake_profile"
	ReportCategoryOther         = "other"

	// Report statuses
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"

	// Notification types
	NotificationAccountFrozen   = "account_frozen"
	NotificationAccountUnfrozen = "account_unfrozen"
	NotificationUnfreezeSoon    = "unfreeze_soon"

	// Booking statuses
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
	BookingStatusNoShow    = "no_show"

	// Attribution for sweep-driven unfreezes
	UnfrozenBySystem = "system"
)
