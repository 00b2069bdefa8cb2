/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall/internal/events"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	NodeID   string
}

// RedisBridge relays events between the local in-process bus and Redis
// pub/sub channels. Local publishes go out to Redis; remote messages from
// other nodes are republished on the local bus.
type RedisBridge struct {
	client *redis.Client
	pubsub *redis.PubSub
	local  *events.Bus
	logger zerolog.Logger
	nodeID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisBridge connects to Redis and starts relaying every supported
// event type.
func NewRedisBridge(cfg RedisConfig, local *events.Bus, logger zerolog.Logger) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	channels := make([]string, 0, len(events.All()))
	for _, event := range events.All() {
		channels = append(channels, subjectPrefix+string(event))
	}

	rb := &RedisBridge{
		client: client,
		pubsub: client.Subscribe(ctx, channels...),
		local:  local,
		logger: logger.With().Str("component", "eventbus-redis").Logger(),
		nodeID: nodeID(cfg.NodeID),
		ctx:    ctx,
		cancel: cancel,
	}

	rb.wg.Add(1)
	go rb.receive()

	rb.logger.Info().Str("addr", cfg.Addr).Str("node", rb.nodeID).Msg("redis event bridge started")
	return rb, nil
}

// Publish sends the event to local subscribers and to every other node.
func (rb *RedisBridge) Publish(event events.EventType, payload events.Payload) {
	rb.local.Publish(event, payload)

	data, err := marshalMessage(event, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("failed to marshal bus message")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()
	if err := rb.client.Publish(ctx, subjectPrefix+string(event), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event", string(event)).Msg("failed to publish to redis")
	}
}

// receive republishes remote messages onto the local bus.
func (rb *RedisBridge) receive() {
	defer rb.wg.Done()

	ch := rb.pubsub.Channel()
	for {
		select {
		case <-rb.ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				rb.logger.Warn().Msg("redis pubsub channel closed")
				return
			}

			msg, err := unmarshalMessage([]byte(raw.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("failed to decode redis message")
				continue
			}
			if msg.NodeID == rb.nodeID {
				continue
			}

			rb.local.Publish(msg.Event, msg.Payload)
		}
	}
}

// Close stops the relay and releases the Redis connection.
func (rb *RedisBridge) Close() error {
	rb.cancel()
	_ = rb.pubsub.Close()
	rb.wg.Wait()
	return rb.client.Close()
}
