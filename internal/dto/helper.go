package dto

// HelperRequest creates or updates a helper person attached to an exam.
type HelperRequest struct {
	Name              string  `json:"name" validate:"required,max=120"`
	Email             *string `json:"email" validate:"omitempty,email"`
	IsAssistant       bool    `json:"is_assistant"`
	PresentOnSite     bool    `json:"present_on_site"`
	CountsTowardQuota bool    `json:"counts_toward_quota"`
}
