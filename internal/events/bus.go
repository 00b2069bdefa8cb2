/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates the platform event vocabulary. The set is closed:
// dispatch silently ignores anything outside it.
type EventType string

const (
	EventChannelStart     EventType = "channel_start"
	EventChannelStop      EventType = "channel_stop"
	EventChannelError     EventType = "channel_error"
	EventStreamSwitch     EventType = "stream_switch"
	EventRecordingStart   EventType = "recording_start"
	EventRecordingStop    EventType = "recording_stop"
	EventEPGRefresh       EventType = "epg_refresh"
	EventM3URefresh       EventType = "m3u_refresh"
	EventClientConnect    EventType = "client_connect"
	EventClientDisconnect EventType = "client_disconnect"
	EventLoginSuccess     EventType = "login_success"
	EventLoginFailed      EventType = "login_failed"
	EventBufferWarning    EventType = "buffer_warning"
	EventSourceDown       EventType = "source_down"
	EventSystemStart      EventType = "system_start"
)

// All lists every supported event type in declaration order.
func All() []EventType {
	return []EventType{
		EventChannelStart,
		EventChannelStop,
		EventChannelError,
		EventStreamSwitch,
		EventRecordingStart,
		EventRecordingStop,
		EventEPGRefresh,
		EventM3URefresh,
		EventClientConnect,
		EventClientDisconnect,
		EventLoginSuccess,
		EventLoginFailed,
		EventBufferWarning,
		EventSourceDown,
		EventSystemStart,
	}
}

// Supported reports whether name is part of the event vocabulary.
func Supported(name string) bool {
	for _, e := range All() {
		if string(e) == name {
			return true
		}
	}
	return false
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
