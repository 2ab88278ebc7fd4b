package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// PageEnvelope is the list response shape shared by paginated endpoints.
type PageEnvelope struct {
	Data       any   `json:"data"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// MessageEnvelope is returned by endpoints that only acknowledge receipt.
type MessageEnvelope struct {
	Message string `json:"message"`
}
