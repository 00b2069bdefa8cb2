package events

import "testing"

func TestSupportedCoversVocabulary(t *testing.T) {
	if len(All()) != 15 {
		t.Fatalf("expected 15 event types, got %d", len(All()))
	}
	for _, e := range All() {
		if !Supported(string(e)) {
			t.Fatalf("event %s not reported as supported", e)
		}
	}
	if Supported("made_up_event") {
		t.Fatal("unknown event reported as supported")
	}
}

func TestBusPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventChannelStart)
	defer bus.Unsubscribe(EventChannelStart, sub)

	bus.Publish(EventChannelStart, Payload{"channel_name": "BBC"})

	select {
	case payload := <-sub:
		if payload["channel_name"] != "BBC" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	default:
		t.Fatal("expected payload on subscriber channel")
	}
}

func TestBusPublishDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventEPGRefresh)
	defer bus.Unsubscribe(EventEPGRefresh, sub)

	for i := 0; i < 20; i++ {
		bus.Publish(EventEPGRefresh, Payload{"n": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("expected channel full at %d, got %d", cap(sub), len(sub))
	}
}
