/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// DeliveryStatus is the recorded outcome of one dispatch attempt.
type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryLog is the immutable audit record of one dispatch attempt.
// Rows are created by the dispatcher only and never updated; they are
// removed solely via cascade when the owning subscription is deleted.
type DeliveryLog struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionID string         `gorm:"type:uuid;index;not null" json:"subscription_id"`
	Status         DeliveryStatus `gorm:"type:varchar(16);not null" json:"status"`
	RequestPayload string         `gorm:"type:text" json:"request_payload"`
	ResponseBody   string         `gorm:"type:text" json:"response_payload,omitempty"`
	Error          string         `gorm:"type:text" json:"error_message,omitempty"`

	// Relationships
	Subscription *EventSubscription `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE" json:"subscription,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (DeliveryLog) TableName() string {
	return "delivery_logs"
}
