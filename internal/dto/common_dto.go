package dto

type ErrorResponse struct {
	Error     bool              `json:"error"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Lock      string `json:"lock"`
}
