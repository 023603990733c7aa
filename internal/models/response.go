// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package models

import "time"

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	// Status is "success" or "error".
	Status string `json:"status"`

	// Data is the response payload.
	Data interface{} `json:"data,omitempty"`

	// Error holds error details when Status is "error".
	Error *APIError `json:"error,omitempty"`

	// Metadata contains timing and diagnostic information.
	Metadata Metadata `json:"metadata"`
}

// APIError describes an API-level error.
type APIError struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details carries optional additional context.
	Details string `json:"details,omitempty"`
}

// Metadata contains response timing and diagnostic fields.
type Metadata struct {
	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`

	// QueryTimeMS is the server-side processing time in milliseconds.
	QueryTimeMS int64 `json:"query_time_ms,omitempty"`

	// RequestID is the correlation identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}
