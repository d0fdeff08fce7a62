package model

type EnqueueResponse struct {
	JobIDs []string `json:"jobIds"`
}

type StatusResponse struct {
	State  JobState              `json:"state"`
	Result *ClassificationResult `json:"result"`
	Error  string                `json:"error,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
