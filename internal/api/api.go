/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/heimdall/internal/dispatch"
	"github.com/friendsincode/heimdall/internal/events"
	"github.com/friendsincode/heimdall/internal/integrations"
)

// API exposes the integration management HTTP handlers.
// Authentication of callers is a deployment concern handled upstream.
type API struct {
	db             *gorm.DB
	integrationSvc *integrations.Service
	dispatcher     *dispatch.Service
	logger         zerolog.Logger
}

// New creates the API handler wrapper.
func New(database *gorm.DB, integrationSvc *integrations.Service, dispatcher *dispatch.Service, logger zerolog.Logger) *API {
	return &API{
		db:             database,
		integrationSvc: integrationSvc,
		dispatcher:     dispatcher,
		logger:         logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes mounts all API routes.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", a.handleListEvents)
		a.registerIntegrationRoutes(r)
	})
}

// handleListEvents returns the supported event vocabulary.
func (a *API) handleListEvents(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"events": events.All(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
