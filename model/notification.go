package model

import "time"

// Notification delivered to a user. Freeze notices are composed only from
// restriction type, level, counter snapshots and the unfreeze date; reporter
// identity never reaches this table.
type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text;not null"`
	UserID    string    `json:"user_id" gorm:"not null;index"`
	Type      string    `json:"type" gorm:"not null;size:50"`
	Title     string    `json:"title" gorm:"not null"`
	Content   string    `json:"content" gorm:"type:text"`
	Link      string    `json:"link,omitempty"`
	Metadata  string    `json:"metadata,omitempty" gorm:"type:text"`
	IsRead    bool      `json:"is_read" gorm:"default:false;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
