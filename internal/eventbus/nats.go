/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL    string
	NodeID string
}

// NATSBridge relays events between the local in-process bus and NATS
// subjects under heimdall.events.>.
type NATSBridge struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	local  *events.Bus
	logger zerolog.Logger
	nodeID string
}

// NewNATSBridge connects to NATS with reconnection enabled and starts
// relaying every supported event type.
func NewNATSBridge(cfg NATSConfig, local *events.Bus, logger zerolog.Logger) (*NATSBridge, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats at %s: %w", cfg.URL, err)
	}

	nb := &NATSBridge{
		conn:   conn,
		local:  local,
		logger: logger.With().Str("component", "eventbus-nats").Logger(),
		nodeID: nodeID(cfg.NodeID),
	}

	sub, err := conn.Subscribe(subjectPrefix+">", nb.handleMessage)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s>: %w", subjectPrefix, err)
	}
	if err := conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		conn.Close()
		return nil, fmt.Errorf("flush nats subscription: %w", err)
	}
	nb.sub = sub

	nb.logger.Info().Str("url", cfg.URL).Str("node", nb.nodeID).Msg("nats event bridge started")
	return nb, nil
}

// Publish sends the event to local subscribers and to every other node.
func (nb *NATSBridge) Publish(event events.EventType, payload events.Payload) {
	nb.local.Publish(event, payload)

	data, err := marshalMessage(event, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to marshal bus message")
		return
	}

	if err := nb.conn.Publish(subjectPrefix+string(event), data); err != nil {
		nb.logger.Error().Err(err).Str("event", string(event)).Msg("failed to publish to nats")
	}
}

// handleMessage republishes remote messages onto the local bus. The event
// name is taken from the subject so unknown subjects are ignored cheaply.
func (nb *NATSBridge) handleMessage(raw *nats.Msg) {
	name := strings.TrimPrefix(raw.Subject, subjectPrefix)
	if !events.Supported(name) {
		return
	}

	msg, err := unmarshalMessage(raw.Data)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to decode nats message")
		return
	}
	if msg.NodeID == nb.nodeID {
		return
	}

	nb.local.Publish(events.EventType(name), msg.Payload)
}

// Close stops the relay and drains the NATS connection.
func (nb *NATSBridge) Close() error {
	if nb.sub != nil {
		_ = nb.sub.Unsubscribe()
	}
	nb.conn.Close()
	return nil
}
