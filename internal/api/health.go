// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package api

import "net/http"

type healthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthHandler answers liveness probes. Unauthenticated; reports the build
// version and nothing about stored data.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates the health handler for the given build version.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health reports that the process is serving requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteData(w, r, healthStatus{Status: "ok", Version: h.version})
}
