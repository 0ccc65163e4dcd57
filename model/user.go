package model

import "time"

// User carries the authoritative lifetime violation counters alongside the
// denormalized freeze flags that mirror restriction state for fast reads.
// Restriction records store immutable snapshots of these counters; the live
// values here are only ever incremented together with the guard decision.
type User struct {
	ID        string `json:"id" gorm:"primaryKey;type:text;not null"`
	Email     string `json:"email" gorm:"unique"`
	Username  string `json:"username" gorm:"unique;not null"`
	Password  string `json:"-"`
	Role      string `json:"role" gorm:"not null;default:'client';size:20"`

	// Client-side violation counters
	CancellationCount int `json:"cancellation_count" gorm:"default:0;not null"`
	NoShowCount       int `json:"no_show_count" gorm:"default:0;not null"`

	// Provider-side report counters
	ReportCount        int `json:"report_count" gorm:"default:0;not null"`
	ScamReportCount    int `json:"scam_report_count" gorm:"default:0;not null"`
	NotRealPersonCount int `json:"not_real_person_count" gorm:"default:0;not null"`
	FakeProfileCount   int `json:"fake_profile_count" gorm:"default:0;not null"`

	// Denormalized badges and freeze mirrors
	WarningBadge           bool `json:"warning_badge" gorm:"default:false;not null"`
	NoShowBadge            bool `json:"no_show_badge" gorm:"default:false;not null"`
	ClientFrozen           bool `json:"client_frozen" gorm:"default:false;not null"`
	ProviderFrozen         bool `json:"provider_frozen" gorm:"default:false;not null"`
	ProviderViolationLevel int  `json:"provider_violation_level" gorm:"default:0;not null"`

	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
