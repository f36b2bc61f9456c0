package models

// Envelope wraps every request and response body.
type Envelope struct {
	Data interface{} `json:"data"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
