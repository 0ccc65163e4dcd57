package dto

// ==================== ERROR RESPONSE DTOs ====================

type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Invalid request"`
	Error   string `json:"error,omitempty" example:"validation failed"`
}

type ValidationError struct {
	Field   string `json:"field" example:"target_id"`
	Message string `json:"message" example:"target_id is required"`
}

type ValidationErrorResponse struct {
	Code    int               `json:"code" example:"400"`
	Message string            `json:"message" example:"Validation failed"`
	Errors  []ValidationError `json:"errors"`
}

// ==================== API RESPONSE WRAPPERS ====================

type SuccessResponse struct {
	Code    int         `json:"code" example:"200"`
	Message string      `json:"message" example:"Success"`
	Data    interface{} `json:"data,omitempty"`
}

// ==================== PAGINATION DTOs ====================

type PaginationRequest struct {
	Page  int `json:"page" form:"page" validate:"omitempty,min=1" example:"1"`
	Limit int `json:"limit" form:"limit" validate:"omitempty,min=1,max=100" example:"20"`
}

func (p PaginationRequest) Validate() error {
	return GetValidator().Struct(p)
}
