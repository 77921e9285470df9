package client

import "time"

// StoreResponse is the document API's answer to a store request.
type StoreResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// Document is one retrieved record.
type Document struct {
	Text           string         `json:"text"`
	AUID           string         `json:"auid"`
	AdditionalArgs map[string]any `json:"additional_args,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	DocumentID     string         `json:"document_id"`
}

// GetResponse is the document API's answer to a retrieval request.
// Documents are ordered most-recent-first.
type GetResponse struct {
	Status    string     `json:"status"`
	Count     int        `json:"count"`
	Documents []Document `json:"documents"`
}

// ErrorResponse is the API's JSON error shape.
type ErrorResponse struct {
	Error string `json:"error"`
}
