package models

// DetailResponse carries a single human-readable message. Errors and the
// delete acknowledgement share this shape.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse is returned by the root endpoint
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service availability
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}
