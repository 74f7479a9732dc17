// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

// Package api provides the HTTP surface: the chi router, the request
// pipeline stages, the resource handlers, and the response envelope every
// endpoint answers with.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tmojlabs/catalogd/internal/logging"
)

// Envelope is the response wrapper for all API endpoints. Success carries
// data (and count for lists); failure carries a human-readable error and
// optionally the fields that failed validation.
type Envelope struct {
	Success bool        `json:"success"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}

// writeJSON writes the envelope with proper headers. Encoding failures are
// logged; the status line has already been sent.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("encode response")
	}
}

// WriteData writes a 200 response carrying a single record or object.
func WriteData(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, r, http.StatusOK, Envelope{Success: true, Data: data})
}

// WriteList writes a 200 response carrying a collection plus its count.
func WriteList(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	writeJSON(w, r, http.StatusOK, Envelope{Success: true, Count: &count, Data: data})
}

// WriteCreated writes a 201 response carrying the stored record.
func WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, r, http.StatusCreated, Envelope{Success: true, Data: data})
}

// WriteDeleted writes a 200 removal acknowledgment: an empty data object
// plus a confirmation message. The record itself is never echoed back.
func WriteDeleted(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, r, http.StatusOK, Envelope{Success: true, Data: struct{}{}, Message: message})
}

// WriteBadRequest writes a 400 error.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, r, http.StatusBadRequest, Envelope{Success: false, Error: message})
}

// WriteUnauthorized writes a 401 error. The message is deliberately uniform
// across all authentication failure causes.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusUnauthorized, Envelope{Success: false, Error: "authentication required"})
}

// WriteForbidden writes a 403 error.
func WriteForbidden(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusForbidden, Envelope{Success: false, Error: "insufficient permissions"})
}

// WriteNotFound writes a 404 error.
func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, r, http.StatusNotFound, Envelope{Success: false, Error: message})
}

// WriteTooManyRequests writes a 429 error.
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, r, http.StatusTooManyRequests, Envelope{Success: false, Error: message})
}

// WriteValidationFailed writes a 422 error listing the offending fields.
func WriteValidationFailed(w http.ResponseWriter, r *http.Request, fields interface{}) {
	writeJSON(w, r, http.StatusUnprocessableEntity, Envelope{
		Success: false,
		Error:   "validation failed",
		Fields:  fields,
	})
}

// WriteInternalError writes a 500 error. The underlying cause is logged,
// never sent to the client.
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Msg("internal error")
	writeJSON(w, r, http.StatusInternalServerError, Envelope{Success: false, Error: "internal server error"})
}
