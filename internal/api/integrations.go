/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/heimdall/internal/integrations"
	"github.com/friendsincode/heimdall/internal/models"
)

func (a *API) registerIntegrationRoutes(r chi.Router) {
	r.Route("/integrations", func(r chi.Router) {
		r.Get("/", a.handleListIntegrations)
		r.Post("/", a.handleCreateIntegration)
		r.Get("/{id}", a.handleGetIntegration)
		r.Put("/{id}", a.handleUpdateIntegration)
		r.Delete("/{id}", a.handleDeleteIntegration)
		r.Get("/{id}/subscriptions", a.handleListSubscriptions)
		r.Put("/{id}/subscriptions", a.handleReplaceSubscriptions)
		r.Post("/{id}/test", a.handleTestIntegration)
		r.Get("/{id}/logs", a.handleIntegrationLogs)
	})
}

// handleListIntegrations returns all integrations.
func (a *API) handleListIntegrations(rw http.ResponseWriter, r *http.Request) {
	var list []models.Integration
	if err := a.db.Order("created_at DESC").Find(&list).Error; err != nil {
		writeError(rw, http.StatusInternalServerError, "failed to fetch integrations")
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"integrations": list,
	})
}

// handleCreateIntegration creates a new integration.
func (a *API) handleCreateIntegration(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string                 `json:"name"`
		Type   models.IntegrationType `json:"type"`
		Config map[string]any         `json:"config"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(rw, http.StatusBadRequest, "name required")
		return
	}

	if err := integrations.ValidateConfig(req.Type, req.Config); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	integration := models.NewIntegration(req.Name, req.Type, req.Config)

	if err := a.db.Create(integration).Error; err != nil {
		writeError(rw, http.StatusInternalServerError, "failed to create integration")
		return
	}

	writeJSON(rw, http.StatusCreated, map[string]any{
		"integration": integration,
	})
}

// handleGetIntegration returns a specific integration.
func (a *API) handleGetIntegration(rw http.ResponseWriter, r *http.Request) {
	integration, ok := a.findIntegration(rw, r)
	if !ok {
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"integration": integration,
	})
}

// handleUpdateIntegration updates name, config, and enabled flag.
func (a *API) handleUpdateIntegration(rw http.ResponseWriter, r *http.Request) {
	integration, ok := a.findIntegration(rw, r)
	if !ok {
		return
	}

	var req struct {
		Name    *string        `json:"name"`
		Config  map[string]any `json:"config"`
		Enabled *bool          `json:"enabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		integration.Name = *req.Name
	}
	if req.Config != nil {
		if err := integrations.ValidateConfig(integration.Type, req.Config); err != nil {
			writeError(rw, http.StatusBadRequest, err.Error())
			return
		}
		integration.Config = req.Config
	}
	if req.Enabled != nil {
		integration.Enabled = *req.Enabled
	}

	if err := a.db.Save(integration).Error; err != nil {
		writeError(rw, http.StatusInternalServerError, "failed to update integration")
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"integration": integration,
	})
}

// handleDeleteIntegration deletes an integration; subscriptions and their
// delivery logs cascade.
func (a *API) handleDeleteIntegration(rw http.ResponseWriter, r *http.Request) {
	integration, ok := a.findIntegration(rw, r)
	if !ok {
		return
	}

	var subIDs []string
	if err := a.db.Model(&models.EventSubscription{}).
		Where("integration_id = ?", integration.ID).
		Pluck("id", &subIDs).Error; err != nil {
		writeError(rw, http.StatusInternalServerError, "failed to delete integration")
		return
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if len(subIDs) > 0 {
			if err := tx.Where("subscription_id IN ?", subIDs).Delete(&models.DeliveryLog{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("integration_id = ?", integration.ID).Delete(&models.EventSubscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(integration).Error
	})
	if err != nil {
		writeError(rw, http.StatusInternalServerError, "failed to delete integration")
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"deleted": integration.ID,
	})
}

// handleListSubscriptions returns the integration's subscriptions.
func (a *API) handleListSubscriptions(rw http.ResponseWriter, r *http.Request) {
	integration, ok := a.findIntegration(rw, r)
	if !ok {
		return
	}

	subs, err := a.integrationSvc.ListSubscriptions(r.Context(), integration.ID)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, "failed to fetch subscriptions")
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"subscriptions": subs,
	})
}

// handleReplaceSubscriptions performs the atomic bulk replace.
func (a *API) handleReplaceSubscriptions(rw http.ResponseWriter, r *http.Request) {
	integration, ok := a.findIntegration(rw, r)
	if !ok {
		return
	}

	var req struct {
		Subscriptions []integrations.SubscriptionEntry `json:"subscriptions"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid request body")
		return
	}

	subs, err := a.integrationSvc.ReplaceSubscriptions(r.Context(), integration, req.Subscriptions)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"subscriptions": subs,
	})
}

// handleTestIntegration fires a synthetic payload at the integration and
// returns the handler result directly. No delivery log is written.
func (a *API) handleTestIntegration(rw http.ResponseWriter, r *http.Request) {
	integration, ok := a.findIntegration(rw, r)
	if !ok {
		return
	}

	result, err := a.dispatcher.Test(r.Context(), integration)
	if err != nil {
		writeJSON(rw, http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"success": result.Success,
		"result":  result,
	})
}

// handleIntegrationLogs returns delivery logs for an integration, newest
// first, with limit/offset pagination.
func (a *API) handleIntegrationLogs(rw http.ResponseWriter, r *http.Request) {
	integration, ok := a.findIntegration(rw, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	offset := queryInt(r, "offset", 0)

	var logs []models.DeliveryLog
	err := a.db.
		Joins("JOIN event_subscriptions ON event_subscriptions.id = delivery_logs.subscription_id").
		Where("event_subscriptions.integration_id = ?", integration.ID).
		Order("delivery_logs.created_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("Subscription").
		Find(&logs).Error
	if err != nil {
		writeError(rw, http.StatusInternalServerError, "failed to fetch delivery logs")
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}

// findIntegration loads the integration from the id route param, writing
// a 404 on miss.
func (a *API) findIntegration(rw http.ResponseWriter, r *http.Request) (*models.Integration, bool) {
	id := chi.URLParam(r, "id")

	var integration models.Integration
	if err := a.db.First(&integration, "id = ?", id).Error; err != nil {
		writeError(rw, http.StatusNotFound, "integration not found")
		return nil, false
	}
	return &integration, true
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
