package model

import "time"

// Restriction holds the lifecycle fields shared by both restriction families.
// Counters on the concrete types are snapshots captured at creation time.
//
// A user has at most one frozen restriction per family at any instant; the
// guarantee is backed by a partial unique index on (user_id) WHERE is_frozen
// created during migration. A record never re-freezes once unfrozen; a new
// violation opens a new record.
type Restriction struct {
	ID              string     `json:"id" gorm:"primaryKey;type:text;not null"`
	UserID          string     `json:"user_id" gorm:"not null;index"`
	RestrictionType string     `json:"restriction_type" gorm:"not null;size:50"`
	Reason          string     `json:"reason" gorm:"type:text"`
	ViolationLevel  int        `json:"violation_level" gorm:"not null"`
	IsFrozen        bool       `json:"is_frozen" gorm:"default:true;not null"`
	FrozenAt        time.Time  `json:"frozen_at" gorm:"not null"`
	AutoUnfreezeAt  *time.Time `json:"auto_unfreeze_at,omitempty" gorm:"index"`
	UnfrozenAt      *time.Time `json:"unfrozen_at,omitempty"`
	UnfrozenBy      string     `json:"unfrozen_by,omitempty" gorm:"size:64"`
	Notes           string     `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsPermanent reports whether the freeze has no scheduled end.
func (r *Restriction) IsPermanent() bool {
	return r.AutoUnfreezeAt == nil
}

// IsExpired reports whether a still-frozen record has reached its scheduled
// unfreeze time. Live freeze checks must treat such records as not frozen.
// A record due exactly now counts as expired, matching the sweep's
// auto_unfreeze_at <= now predicate.
func (r *Restriction) IsExpired(now time.Time) bool {
	return r.AutoUnfreezeAt != nil && !now.Before(*r.AutoUnfreezeAt)
}

// BookingRestriction freezes a client's ability to book. Tracks the
// cancellation and no-show counters in effect when the freeze was applied.
type BookingRestriction struct {
	Restriction

	CancellationCount int `json:"cancellation_count" gorm:"default:0;not null"`
	NoShowCount       int `json:"no_show_count" gorm:"default:0;not null"`
}

func (BookingRestriction) TableName() string {
	return "booking_restrictions"
}

// ProviderRestriction freezes a provider's profile and booking acceptance.
// Tracks the report counters in effect when the freeze was applied.
type ProviderRestriction struct {
	Restriction

	ReportCount        int `json:"report_count" gorm:"default:0;not null"`
	ScamReportCount    int `json:"scam_report_count" gorm:"default:0;not null"`
	NotRealPersonCount int `json:"not_real_person_count" gorm:"default:0;not null"`
	FakeProfileCount   int `json:"fake_profile_count" gorm:"default:0;not null"`
}

func (ProviderRestriction) TableName() string {
	return "provider_restrictions"
}
