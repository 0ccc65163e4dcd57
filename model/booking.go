package model

import "time"

type Booking struct {
	ID          string     `json:"id" gorm:"primaryKey;type:text;not null"`
	ClientID    string     `json:"client_id" gorm:"not null;index"`
	ProviderID  string     `json:"provider_id" gorm:"not null;index"`
	Status      string     `json:"status" gorm:"not null;default:'pending';size:20"`
	ScheduledAt time.Time  `json:"scheduled_at" gorm:"not null"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty" gorm:"size:64"`
	NoShowAt    *time.Time `json:"no_show_at,omitempty"`
	Notes       string     `json:"notes,omitempty" gorm:"size:500"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
