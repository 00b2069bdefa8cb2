/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/friendsincode/heimdall/internal/events"
)

// Renderer turns a per-subscription payload template into the outgoing
// text. Implementations must fail loudly; the dispatcher handles the
// fallback to the raw payload.
type Renderer interface {
	Render(tmpl string, context events.Payload) (string, error)
}

// TextRenderer renders Go text/template syntax against the raw payload.
// Missing keys are errors so that a bad template degrades instead of
// silently emitting "<no value>".
type TextRenderer struct{}

// Render parses and executes tmpl with the payload as dot.
func (TextRenderer) Render(tmpl string, context events.Payload) (string, error) {
	parsed, err := template.New("payload").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, map[string]any(context)); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
