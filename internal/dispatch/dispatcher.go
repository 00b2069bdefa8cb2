/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/friendsincode/heimdall/internal/events"
	"github.com/friendsincode/heimdall/internal/models"
	"github.com/friendsincode/heimdall/internal/telemetry"
)

// Options carries the process-wide dispatch configuration, fixed for the
// process lifetime.
type Options struct {
	Sandbox         Sandbox
	ScriptTimeout   time.Duration
	ScriptMaxOutput int
	WebhookTimeout  time.Duration
}

// Service orchestrates event fan-out to integrations and plugins. Trigger
// is the sole entry point the rest of the platform calls into; it never
// returns an error and never panics across a subscription boundary.
type Service struct {
	registry Registry
	recorder DeliveryRecorder
	renderer Renderer
	plugins  PluginDirectory
	bus      *events.Bus
	logger   zerolog.Logger
	tracer   trace.Tracer

	sandbox         Sandbox
	scriptTimeout   time.Duration
	scriptMaxOutput int
	webhookTimeout  time.Duration
}

// NewService creates the dispatcher. plugins may be nil when the plugin
// subsystem is disabled.
func NewService(registry Registry, recorder DeliveryRecorder, renderer Renderer, plugins PluginDirectory, bus *events.Bus, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		registry:        registry,
		recorder:        recorder,
		renderer:        renderer,
		plugins:         plugins,
		bus:             bus,
		logger:          logger.With().Str("component", "dispatch").Logger(),
		tracer:          otel.Tracer("heimdall/dispatch"),
		sandbox:         opts.Sandbox,
		scriptTimeout:   opts.ScriptTimeout,
		scriptMaxOutput: opts.ScriptMaxOutput,
		webhookTimeout:  opts.WebhookTimeout,
	}
}

// Start subscribes to the full event vocabulary on the in-process bus and
// dispatches each published payload. It blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("dispatch service starting")

	type namedSub struct {
		event events.EventType
		ch    events.Subscriber
	}

	var subs []namedSub
	for _, event := range events.All() {
		subs = append(subs, namedSub{event: event, ch: s.bus.Subscribe(event)})
	}
	defer func() {
		for _, sub := range subs {
			s.bus.Unsubscribe(sub.event, sub.ch)
		}
	}()

	// One goroutine per event channel; each drains into Trigger.
	done := make(chan struct{})
	for _, sub := range subs {
		go func(sub namedSub) {
			for {
				select {
				case <-done:
					return
				case payload, ok := <-sub.ch:
					if !ok {
						return
					}
					s.Trigger(ctx, string(sub.event), payload)
				}
			}
		}(sub)
	}

	s.logger.Info().Msg("dispatch service started")
	<-ctx.Done()
	close(done)
	s.logger.Info().Msg("dispatch service stopping")
}

// Trigger fans one event out to every enabled subscription, recording one
// delivery log per attempt, then bridges the event to enabled plugins.
// Unknown event names are ignored without side effects.
func (s *Service) Trigger(ctx context.Context, event string, payload events.Payload) {
	if !events.Supported(event) {
		s.logger.Debug().Str("event", event).Msg("ignoring unsupported event")
		return
	}

	ctx, span := s.tracer.Start(ctx, "dispatch.trigger",
		trace.WithAttributes(attribute.String("event", event)))
	defer span.End()

	subs, err := s.registry.EnabledForEvent(ctx, event)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("failed to load subscriptions")
	}
	span.SetAttributes(attribute.Int("subscriptions", len(subs)))

	for i := range subs {
		s.dispatchOne(ctx, &subs[i], payload)
	}

	// The plugin bridge runs strictly after the subscription fan-out and
	// its failures stay inside the plugin subsystem.
	s.bridgePlugins(ctx, event, payload)
}

// dispatchOne delivers to a single subscription. Every failure path ends
// in exactly one failed delivery log; nothing escapes to the caller.
func (s *Service) dispatchOne(ctx context.Context, sub *models.EventSubscription, payload events.Payload) {
	integration := sub.Integration
	if integration == nil {
		s.logger.Error().Str("subscription", sub.ID).Msg("subscription has no integration loaded")
		return
	}

	start := time.Now()
	effective := s.effectivePayload(integration, sub, payload)
	request := requestText(effective)

	handler, err := s.resolveHandler(integration, effective)
	if err != nil {
		s.record(ctx, sub, integration, &models.DeliveryLog{
			SubscriptionID: sub.ID,
			Status:         models.DeliveryFailed,
			RequestPayload: request,
			Error:          err.Error(),
		})
		return
	}

	result, err := handler.Execute(ctx)
	if err != nil {
		s.record(ctx, sub, integration, &models.DeliveryLog{
			SubscriptionID: sub.ID,
			Status:         models.DeliveryFailed,
			RequestPayload: request,
			Error:          err.Error(),
		})
		return
	}

	status := models.DeliverySuccess
	if !result.Success {
		status = models.DeliveryFailed
	}

	s.record(ctx, sub, integration, &models.DeliveryLog{
		SubscriptionID: sub.ID,
		Status:         status,
		RequestPayload: request,
		ResponseBody:   resultText(result),
		Error:          result.Error,
	})

	telemetry.DeliveryDuration.WithLabelValues(string(integration.Type)).Observe(time.Since(start).Seconds())
}

// record writes the audit row and bumps the delivery counter.
func (s *Service) record(ctx context.Context, sub *models.EventSubscription, integration *models.Integration, log *models.DeliveryLog) {
	s.recorder.Record(ctx, log)
	telemetry.DeliveriesTotal.WithLabelValues(string(integration.Type), string(log.Status)).Inc()

	evt := s.logger.Debug()
	if log.Status == models.DeliveryFailed {
		evt = s.logger.Warn()
	}
	evt.Str("subscription", sub.ID).
		Str("integration", integration.ID).
		Str("type", string(integration.Type)).
		Str("status", string(log.Status)).
		Str("error", log.Error).
		Msg("delivery recorded")
}

// effectivePayload applies the optional webhook payload template. Render
// failures degrade to the raw payload; they are never fatal to dispatch.
func (s *Service) effectivePayload(integration *models.Integration, sub *models.EventSubscription, payload events.Payload) any {
	if integration.Type != models.IntegrationWebhook || sub.PayloadTemplate == "" {
		return payload
	}

	rendered, err := s.renderer.Render(sub.PayloadTemplate, payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("subscription", sub.ID).Msg("payload template failed, using raw payload")
		return payload
	}
	return rendered
}

// Test resolves a handler for the integration's declared type and executes
// it with a synthetic payload, bypassing registry and delivery logging.
// Errors surface directly so an operator can diagnose configuration.
func (s *Service) Test(ctx context.Context, integration *models.Integration) (*Result, error) {
	payload := events.Payload{
		"event":        "test",
		"channel_name": "Test Channel",
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
	}

	handler, err := s.resolveHandler(integration, any(payload))
	if err != nil {
		return nil, err
	}
	return handler.Execute(ctx)
}

// bridgePlugins invokes every enabled plugin action that lists event.
// Plugin failures are logged and dropped; they produce no delivery rows.
func (s *Service) bridgePlugins(ctx context.Context, event string, payload events.Payload) {
	if s.plugins == nil {
		return
	}

	infos, err := s.plugins.EnabledWithActions(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list plugins")
		return
	}

	params := map[string]any{
		"event":   event,
		"payload": map[string]any(payload),
	}

	for _, info := range infos {
		for _, action := range info.Actions {
			if !actionListsEvent(action, event) {
				continue
			}
			if err := s.plugins.InvokeAction(ctx, info.Key, action.ID, params); err != nil {
				s.logger.Warn().Err(err).
					Str("plugin", info.Key).
					Str("action", action.ID).
					Str("event", event).
					Msg("plugin action failed")
			}
		}
	}
}

func actionListsEvent(action PluginAction, event string) bool {
	for _, e := range action.Events {
		if e == event {
			return true
		}
	}
	return false
}

// requestText serialises the effective payload for the audit row.
func requestText(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

// resultText serialises the full handler result for the audit row.
func resultText(result *Result) string {
	data, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(data)
}
