/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/google/uuid"
)

// EventSubscription binds one integration to one event name.
// PayloadTemplate is webhook-only; it is forced empty for other types.
// (IntegrationID, Event) is the natural key for bulk replace.
type EventSubscription struct {
	ID              string `gorm:"type:uuid;primaryKey" json:"id"`
	IntegrationID   string `gorm:"type:uuid;index;not null" json:"integration_id"`
	Event           string `gorm:"type:varchar(64);index;not null" json:"event"`
	Enabled         bool   `gorm:"not null" json:"enabled"`
	PayloadTemplate string `gorm:"type:text" json:"payload_template,omitempty"`

	// Relationships
	Integration *Integration `gorm:"foreignKey:IntegrationID;constraint:OnDelete:CASCADE" json:"integration,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (EventSubscription) TableName() string {
	return "event_subscriptions"
}

// NewEventSubscription creates an enabled subscription with a fresh ID.
func NewEventSubscription(integrationID, event string) *EventSubscription {
	return &EventSubscription{
		ID:            uuid.NewString(),
		IntegrationID: integrationID,
		Event:         event,
		Enabled:       true,
	}
}
