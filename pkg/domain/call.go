package domain

import (
	"net/http"
	"net/url"
)

// Request describes one outbound external call built from the state.
// At most one of JSON and Form should be set.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Query   url.Values
	JSON    any
	Form    url.Values
}

// Response is the buffered result of an external call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Violation is one field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}
