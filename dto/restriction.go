package dto

import "time"

// ==================== RESTRICTION REQUEST DTOs ====================

type ManualRestrictionRequest struct {
	UserID         string `json:"user_id" validate:"required" example:"0195f3a2-7c11-7e88-9f21-3d2b1a90c4e7"`
	Family         string `json:"family" validate:"required,oneof=client provider" example:"client"`
	Reason         string `json:"reason" validate:"required,max=500" example:"Abusive behaviour confirmed by support"`
	ViolationLevel int    `json:"violation_level" validate:"required,min=1,max=4" example:"2"`
	Permanent      bool   `json:"permanent" example:"false"`
	Notes          string `json:"notes" validate:"omitempty,max=2000"`
}

func (m ManualRestrictionRequest) Validate() error {
	return GetValidator().Struct(m)
}

type UnfreezeRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000" example:"Appeal accepted"`
}

func (u UnfreezeRequest) Validate() error {
	return GetValidator().Struct(u)
}

// ==================== RESTRICTION RESPONSE DTOs ====================

type FreezeStatusResponse struct {
	UserID         string     `json:"user_id"`
	Frozen         bool       `json:"frozen" example:"true"`
	RestrictionID  string     `json:"restriction_id,omitempty"`
	Type           string     `json:"type,omitempty" example:"cancellation_limit"`
	ViolationLevel int        `json:"violation_level,omitempty" example:"2"`
	Reason         string     `json:"reason,omitempty"`
	Permanent      bool       `json:"permanent" example:"false"`
	AutoUnfreezeAt *time.Time `json:"auto_unfreeze_at,omitempty"`
}

type RestrictionResponse struct {
	RestrictionID  string     `json:"restriction_id"`
	UserID         string     `json:"user_id"`
	Type           string     `json:"type" example:"no_show"`
	Reason         string     `json:"reason"`
	ViolationLevel int        `json:"violation_level" example:"1"`
	Frozen         bool       `json:"frozen"`
	Permanent      bool       `json:"permanent"`
	FrozenAt       time.Time  `json:"frozen_at"`
	AutoUnfreezeAt *time.Time `json:"auto_unfreeze_at,omitempty"`
	UnfrozenAt     *time.Time `json:"unfrozen_at,omitempty"`
	UnfrozenBy     string     `json:"unfrozen_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

type RestrictionListResponse struct {
	Restrictions []RestrictionResponse `json:"restrictions"`
	Total        int                   `json:"total" example:"2"`
}

// ==================== NOTIFICATION RESPONSE DTOs ====================

type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type" example:"account_frozen"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total" example:"10"`
}
