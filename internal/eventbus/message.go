/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus to Redis or NATS so
// triggers published on one node reach dispatchers on every node.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/heimdall/internal/events"
)

// subjectPrefix namespaces bus traffic on the shared broker.
const subjectPrefix = "heimdall.events."

// message is the wire format shared by the Redis and NATS bridges. NodeID
// prevents a node from re-consuming its own publishes.
type message struct {
	Event     events.EventType `json:"event"`
	Payload   events.Payload   `json:"payload"`
	NodeID    string           `json:"node_id"`
	Timestamp time.Time        `json:"timestamp"`
}

func marshalMessage(event events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		Event:     event,
		Payload:   payload,
		NodeID:    nodeID,
		Timestamp: time.Now().UTC(),
	})
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal bus message: %w", err)
	}
	return &msg, nil
}

// nodeID returns configured or a fresh node identity.
func nodeID(configured string) string {
	if configured != "" {
		return configured
	}
	return uuid.NewString()
}
