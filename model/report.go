package model

import "time"

// Report filed by one user against a provider. ReporterID is never included
// in anything surfaced to the reported user.
type Report struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text;not null"`
	ReporterID  string    `json:"reporter_id" gorm:"not null;index"`
	TargetID    string    `json:"target_id" gorm:"not null;index"`
	Category    string    `json:"category" gorm:"not null;size:50"`
	Description string    `json:"description" gorm:"type:text"`
	Status      string    `json:"status" gorm:"not null;default:'pending';size:20"`
	EvidenceURL string    `json:"evidence_url,omitempty" gorm:"type:text"`
	AdminNote   string    `json:"admin_note,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}
