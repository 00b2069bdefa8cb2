/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/google/uuid"
)

// IntegrationType defines the kind of external target an integration points at.
type IntegrationType string

const (
	IntegrationWebhook IntegrationType = "webhook"
	IntegrationScript  IntegrationType = "script"
	// IntegrationAPI is reserved. No handler exists for it yet; triggering
	// an integration of this type records a failed delivery.
	IntegrationAPI IntegrationType = "api"
)

// Integration is a configured external notification target.
// Config is an open key-value map whose required keys depend on Type:
// webhook needs "url" (plus optional "headers" map), script needs "path".
type Integration struct {
	ID      string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string          `gorm:"type:varchar(255);not null" json:"name"`
	Type    IntegrationType `gorm:"type:varchar(32);not null" json:"type"`
	Config  map[string]any  `gorm:"type:jsonb;serializer:json" json:"config"`
	Enabled bool            `gorm:"not null" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Integration) TableName() string {
	return "integrations"
}

// NewIntegration creates an enabled integration with a fresh ID.
func NewIntegration(name string, typ IntegrationType, config map[string]any) *Integration {
	return &Integration{
		ID:      uuid.NewString(),
		Name:    name,
		Type:    typ,
		Config:  config,
		Enabled: true,
	}
}

// URL returns the configured webhook URL, if any.
func (i *Integration) URL() string {
	s, _ := i.Config["url"].(string)
	return s
}

// ScriptPath returns the configured script path, if any.
func (i *Integration) ScriptPath() string {
	s, _ := i.Config["path"].(string)
	return s
}

// Headers returns configured extra webhook headers.
func (i *Integration) Headers() map[string]string {
	headers := make(map[string]string)
	raw, ok := i.Config["headers"].(map[string]any)
	if !ok {
		return headers
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	return headers
}
