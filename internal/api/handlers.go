// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tmojlabs/catalogd/internal/catalog"
)

// ResourceHandler serves the CRUD endpoints of one catalog resource kind.
// One instance per kind; all kinds share this implementation.
type ResourceHandler struct {
	service *catalog.Service
}

// NewResourceHandler creates a handler over the given catalog service.
func NewResourceHandler(service *catalog.Service) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// List returns every record matching the query filters. Absent filters match
// everything; present filters are combined, all must match.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := catalog.Filter{
		Profile:  r.URL.Query().Get("profile"),
		Platform: r.URL.Query().Get("platform"),
		Category: r.URL.Query().Get("category"),
	}

	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		WriteInternalError(w, r, err)
		return
	}

	// An empty result is a success with count zero, never an error.
	if records == nil {
		records = []catalog.Record{}
	}
	WriteList(w, r, records, len(records))
}

// Get returns a single record by id.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteData(w, r, record)
}

// Create validates the body and stores a new record.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	record, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteCreated(w, r, record)
}

// Update replaces an existing record wholesale, preserving its identity and
// creation time.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	record, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteData(w, r, record)
}

// Delete removes a record by id.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteDeleted(w, r, fmt.Sprintf("%s deleted", h.service.Kind().Singular()))
}

// decodeInput parses the request body. A malformed body is a 400; the
// domain-level checks come later and answer 422.
func (h *ResourceHandler) decodeInput(w http.ResponseWriter, r *http.Request) (catalog.Input, bool) {
	var input catalog.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteBadRequest(w, r, "invalid request body")
		return catalog.Input{}, false
	}
	return input, true
}

// writeServiceError maps catalog service errors onto the envelope.
func (h *ResourceHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *catalog.ValidationError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		WriteNotFound(w, r, fmt.Sprintf("%s not found", h.service.Kind().Singular()))
	case errors.As(err, &validationErr):
		WriteValidationFailed(w, r, validationErr.Fields)
	default:
		WriteInternalError(w, r, err)
	}
}
