package http

// ServiceStatus is the body of the root and health endpoints.
type ServiceStatus struct {
	Service string            `json:"service,omitempty"`
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Tag     string                 `json:"tag,omitempty" example:"required"`
	Field   string                 `json:"field,omitempty" example:"start_date"`
	Message string                 `json:"message,omitempty" example:"start_date is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
