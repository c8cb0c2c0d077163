package dto

// CreateSessionRequest registers a scheduling session.
type CreateSessionRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=120"`
}
