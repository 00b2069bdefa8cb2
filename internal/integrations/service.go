/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package integrations holds the write-side management operations for
// integrations and their event subscriptions.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/heimdall/internal/events"
	"github.com/friendsincode/heimdall/internal/models"
)

// Service validates and mutates integrations and subscriptions.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates the integrations service.
func NewService(database *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     database,
		logger: logger.With().Str("component", "integrations").Logger(),
	}
}

// ValidateConfig checks the type-specific config schema enforced at write
// time. Handlers re-check defensively at dispatch time.
func ValidateConfig(typ models.IntegrationType, config map[string]any) error {
	switch typ {
	case models.IntegrationWebhook:
		url, _ := config["url"].(string)
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("webhook config requires a url")
		}
		if raw, present := config["headers"]; present {
			if _, ok := raw.(map[string]any); !ok {
				return fmt.Errorf("webhook headers must be a string map")
			}
		}
	case models.IntegrationScript:
		path, _ := config["path"].(string)
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("script config requires a path")
		}
	case models.IntegrationAPI:
		// Reserved type; no schema yet.
	default:
		return fmt.Errorf("unknown integration type: %s", typ)
	}
	return nil
}

// SubscriptionEntry is one descriptor in a bulk subscription replace.
type SubscriptionEntry struct {
	Event           string `json:"event"`
	Enabled         bool   `json:"enabled"`
	PayloadTemplate string `json:"payload_template,omitempty"`
}

// ReplaceSubscriptions atomically replaces an integration's subscription
// set. The whole batch is validated before any mutation; on success,
// events absent from entries are deleted and present ones are upserted
// keyed by (integration, event). Replaying the same list is a no-op.
func (s *Service) ReplaceSubscriptions(ctx context.Context, integration *models.Integration, entries []SubscriptionEntry) ([]models.EventSubscription, error) {
	for _, entry := range entries {
		if strings.TrimSpace(entry.Event) == "" {
			return nil, fmt.Errorf("subscription entry has an empty event")
		}
		if !events.Supported(entry.Event) {
			return nil, fmt.Errorf("unknown event: %s", entry.Event)
		}
	}

	// Templates are webhook-only; silently drop them for other types.
	if integration.Type != models.IntegrationWebhook {
		for i := range entries {
			entries[i].PayloadTemplate = ""
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kept := make([]string, 0, len(entries))
		for _, entry := range entries {
			kept = append(kept, entry.Event)
		}

		del := tx.Where("integration_id = ?", integration.ID)
		if len(kept) > 0 {
			del = del.Where("event NOT IN ?", kept)
		}
		if err := del.Delete(&models.EventSubscription{}).Error; err != nil {
			return fmt.Errorf("delete removed subscriptions: %w", err)
		}

		for _, entry := range entries {
			var existing models.EventSubscription
			err := tx.Where("integration_id = ? AND event = ?", integration.ID, entry.Event).
				First(&existing).Error
			switch {
			case err == nil:
				existing.Enabled = entry.Enabled
				existing.PayloadTemplate = entry.PayloadTemplate
				if err := tx.Save(&existing).Error; err != nil {
					return fmt.Errorf("update subscription for %s: %w", entry.Event, err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				sub := models.NewEventSubscription(integration.ID, entry.Event)
				sub.Enabled = entry.Enabled
				sub.PayloadTemplate = entry.PayloadTemplate
				if err := tx.Create(sub).Error; err != nil {
					return fmt.Errorf("create subscription for %s: %w", entry.Event, err)
				}
			default:
				return fmt.Errorf("lookup subscription for %s: %w", entry.Event, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.ListSubscriptions(ctx, integration.ID)
}

// ListSubscriptions returns an integration's subscriptions in creation
// order.
func (s *Service) ListSubscriptions(ctx context.Context, integrationID string) ([]models.EventSubscription, error) {
	var subs []models.EventSubscription
	err := s.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
