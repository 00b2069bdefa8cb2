/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/friendsincode/heimdall/internal/models"
	"github.com/friendsincode/heimdall/internal/version"
)

// maxResponseBytes bounds how much of a webhook response body is kept.
const maxResponseBytes = 64 * 1024

// webhookHandler POSTs the effective payload to the configured URL.
type webhookHandler struct {
	integration *models.Integration
	payload     any
	client      *http.Client
}

func newWebhookHandler(integration *models.Integration, payload any, timeout time.Duration) *webhookHandler {
	return &webhookHandler{
		integration: integration,
		payload:     payload,
		client:      &http.Client{Timeout: timeout},
	}
}

// Execute sends the payload. The JSON sniff decides the Content-Type
// header only; the body bytes are always sent verbatim. Success is exactly
// a 2xx response status.
func (h *webhookHandler) Execute(ctx context.Context) (*Result, error) {
	url := h.integration.URL()
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: webhook url is empty", ErrConfiguration)
	}

	body, isJSON, err := encodeBody(h.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", ErrConfiguration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	} else {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	req.Header.Set("User-Agent", "Heimdall-Webhook/"+version.Version)
	for key, value := range h.integration.Headers() {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	return &Result{
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
	}, nil
}

// encodeBody turns the effective payload into request bytes. A rendered
// template arrives as a string and is transmitted unchanged; a raw payload
// map is marshalled to JSON.
func encodeBody(payload any) ([]byte, bool, error) {
	if s, ok := payload.(string); ok {
		return []byte(s), json.Valid([]byte(s)), nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}
