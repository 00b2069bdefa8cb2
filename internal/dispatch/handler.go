/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"context"
	"fmt"

	"github.com/friendsincode/heimdall/internal/models"
)

// Result is the structured outcome of one handler execution.
// Success is authoritative; the remaining fields are handler-specific.
type Result struct {
	Success bool `json:"success"`

	// Script fields
	ExitCode int    `json:"exit_code,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`

	// Webhook fields
	StatusCode   int    `json:"status_code,omitempty"`
	ResponseBody string `json:"response_body,omitempty"`

	// Error carries a non-fatal execution failure description, e.g. a
	// script timeout. Fatal failures are returned as errors instead.
	Error string `json:"error,omitempty"`
}

// Handler executes one integration delivery. Implementations must not
// swallow configuration errors they cannot act on; the dispatcher is the
// single failure-isolation boundary.
type Handler interface {
	Execute(ctx context.Context) (*Result, error)
}

// resolveHandler maps an integration type onto its handler. The set of
// types is closed; models.IntegrationAPI is reserved and resolves to an
// ErrUnsupportedType until a handler lands.
func (s *Service) resolveHandler(integration *models.Integration, payload any) (Handler, error) {
	switch integration.Type {
	case models.IntegrationWebhook:
		return newWebhookHandler(integration, payload, s.webhookTimeout), nil
	case models.IntegrationScript:
		return newScriptHandler(integration, payload, s.sandbox, s.scriptTimeout, s.scriptMaxOutput), nil
	case models.IntegrationAPI:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, integration.Type)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, integration.Type)
	}
}
