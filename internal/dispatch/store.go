/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/heimdall/internal/models"
)

// Registry is the read-side query surface the dispatcher fans out from.
type Registry interface {
	// EnabledForEvent returns subscriptions for event whose own and whose
	// integration's enabled flags are both set, integration preloaded, in
	// a stable order.
	EnabledForEvent(ctx context.Context, event string) ([]models.EventSubscription, error)
}

// DeliveryRecorder persists one audit row per dispatch attempt. Recording
// failures must never reach the dispatcher's caller.
type DeliveryRecorder interface {
	Record(ctx context.Context, log *models.DeliveryLog)
}

// Store is the gorm-backed Registry and DeliveryRecorder.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a store around an open gorm connection.
func NewStore(database *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     database,
		logger: logger.With().Str("component", "dispatch-store").Logger(),
	}
}

// EnabledForEvent implements Registry. Rows come back ordered by
// subscription creation time so repeated triggers see the same sequence.
func (s *Store) EnabledForEvent(ctx context.Context, event string) ([]models.EventSubscription, error) {
	var subs []models.EventSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN integrations ON integrations.id = event_subscriptions.integration_id").
		Where("event_subscriptions.event = ?", event).
		Where("event_subscriptions.enabled = ?", true).
		Where("integrations.enabled = ?", true).
		Preload("Integration").
		Order("event_subscriptions.created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// Record implements DeliveryRecorder.
func (s *Store) Record(ctx context.Context, log *models.DeliveryLog) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		s.logger.Error().Err(err).Str("subscription", log.SubscriptionID).Msg("failed to record delivery")
	}
}
