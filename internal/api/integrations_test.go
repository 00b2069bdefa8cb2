package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/heimdall/internal/dispatch"
	"github.com/friendsincode/heimdall/internal/events"
	"github.com/friendsincode/heimdall/internal/integrations"
	"github.com/friendsincode/heimdall/internal/models"
)

func newTestAPI(t *testing.T) (*API, *gorm.DB, chi.Router) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Integration{}, &models.EventSubscription{}, &models.DeliveryLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := dispatch.NewStore(db, zerolog.Nop())
	dispatcher := dispatch.NewService(store, store, dispatch.TextRenderer{}, nil, events.NewBus(), dispatch.Options{
		ScriptTimeout:   5 * time.Second,
		ScriptMaxOutput: 10240,
		WebhookTimeout:  5 * time.Second,
	}, zerolog.Nop())

	a := New(db, integrations.NewService(db, zerolog.Nop()), dispatcher, zerolog.Nop())
	r := chi.NewRouter()
	a.RegisterRoutes(r)
	return a, db, r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, decoded
}

func TestListEvents(t *testing.T) {
	_, _, r := newTestAPI(t)

	rr, body := doJSON(t, r, "GET", "/api/v1/events", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	list, ok := body["events"].([]any)
	if !ok || len(list) != 15 {
		t.Fatalf("expected 15 events, got %v", body["events"])
	}
}

func TestCreateIntegrationValidates(t *testing.T) {
	_, db, r := newTestAPI(t)

	rr, _ := doJSON(t, r, "POST", "/api/v1/integrations", map[string]any{
		"type":   "webhook",
		"config": map[string]any{"url": "https://example.com"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing name should 400, got %d", rr.Code)
	}

	rr, _ = doJSON(t, r, "POST", "/api/v1/integrations", map[string]any{
		"name":   "bad hook",
		"type":   "webhook",
		"config": map[string]any{},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing url should 400, got %d", rr.Code)
	}

	rr, body := doJSON(t, r, "POST", "/api/v1/integrations", map[string]any{
		"name":   "good hook",
		"type":   "webhook",
		"config": map[string]any{"url": "https://example.com"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", rr.Code, body)
	}

	var count int64
	db.Model(&models.Integration{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one stored integration, got %d", count)
	}
}

func TestUpdateIntegrationPartial(t *testing.T) {
	_, db, r := newTestAPI(t)

	integration := models.NewIntegration("hook", models.IntegrationWebhook, map[string]any{"url": "https://a"})
	if err := db.Create(integration).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	rr, _ := doJSON(t, r, "PUT", "/api/v1/integrations/"+integration.ID, map[string]any{
		"enabled": false,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var updated models.Integration
	if err := db.First(&updated, "id = ?", integration.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if updated.Enabled {
		t.Fatal("enabled flag not updated")
	}
	if updated.Name != "hook" || updated.URL() != "https://a" {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}

	rr, _ = doJSON(t, r, "PUT", "/api/v1/integrations/"+integration.ID, map[string]any{
		"config": map[string]any{},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid config update should 400, got %d", rr.Code)
	}
}

func TestGetIntegrationNotFound(t *testing.T) {
	_, _, r := newTestAPI(t)

	rr, _ := doJSON(t, r, "GET", "/api/v1/integrations/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteIntegrationCascades(t *testing.T) {
	_, db, r := newTestAPI(t)

	integration := models.NewIntegration("hook", models.IntegrationWebhook, map[string]any{"url": "https://a"})
	if err := db.Create(integration).Error; err != nil {
		t.Fatalf("create integration: %v", err)
	}
	sub := models.NewEventSubscription(integration.ID, string(events.EventChannelStart))
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	log := &models.DeliveryLog{ID: uuid.NewString(), SubscriptionID: sub.ID, Status: models.DeliverySuccess}
	if err := db.Create(log).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}

	rr, _ := doJSON(t, r, "DELETE", "/api/v1/integrations/"+integration.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	for _, model := range []any{&models.Integration{}, &models.EventSubscription{}, &models.DeliveryLog{}} {
		var count int64
		db.Model(model).Count(&count)
		if count != 0 {
			t.Fatalf("expected %T rows removed, got %d", model, count)
		}
	}
}

func TestReplaceSubscriptionsEndpoint(t *testing.T) {
	_, _, r := newTestAPI(t)

	_, body := doJSON(t, r, "POST", "/api/v1/integrations", map[string]any{
		"name":   "hook",
		"type":   "webhook",
		"config": map[string]any{"url": "https://example.com"},
	})
	created := body["integration"].(map[string]any)
	id := created["id"].(string)

	rr, body := doJSON(t, r, "PUT", "/api/v1/integrations/"+id+"/subscriptions", map[string]any{
		"subscriptions": []map[string]any{
			{"event": "channel_start", "enabled": true},
			{"event": "source_down", "enabled": true},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, body)
	}
	subs := body["subscriptions"].([]any)
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subs))
	}

	rr, body = doJSON(t, r, "PUT", "/api/v1/integrations/"+id+"/subscriptions", map[string]any{
		"subscriptions": []map[string]any{
			{"event": "not_an_event", "enabled": true},
		},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown event should 400, got %d", rr.Code)
	}

	rr, body = doJSON(t, r, "GET", "/api/v1/integrations/"+id+"/subscriptions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if subs := body["subscriptions"].([]any); len(subs) != 2 {
		t.Fatalf("rejected replace mutated subscriptions: %v", subs)
	}
}

func TestTestIntegrationEndpoint(t *testing.T) {
	_, db, r := newTestAPI(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	integration := models.NewIntegration("hook", models.IntegrationWebhook, map[string]any{"url": upstream.URL})
	if err := db.Create(integration).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	rr, body := doJSON(t, r, "POST", "/api/v1/integrations/"+integration.ID+"/test", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}

	var count int64
	db.Model(&models.DeliveryLog{}).Count(&count)
	if count != 0 {
		t.Fatalf("test endpoint must not write delivery logs, got %d", count)
	}
}

func TestTestIntegrationEndpointReportsFailure(t *testing.T) {
	_, db, r := newTestAPI(t)

	integration := models.NewIntegration("future", models.IntegrationAPI, map[string]any{})
	if err := db.Create(integration).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	rr, body := doJSON(t, r, "POST", "/api/v1/integrations/"+integration.ID+"/test", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body["success"] != false {
		t.Fatalf("expected failure, got %v", body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "unsupported") {
		t.Fatalf("expected unsupported type error, got %v", body)
	}
}

func TestIntegrationLogsPagination(t *testing.T) {
	_, db, r := newTestAPI(t)

	integration := models.NewIntegration("hook", models.IntegrationWebhook, map[string]any{"url": "https://a"})
	if err := db.Create(integration).Error; err != nil {
		t.Fatalf("create integration: %v", err)
	}
	sub := models.NewEventSubscription(integration.ID, string(events.EventChannelStart))
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		log := &models.DeliveryLog{
			ID:             uuid.NewString(),
			SubscriptionID: sub.ID,
			Status:         models.DeliverySuccess,
			RequestPayload: fmt.Sprintf("payload-%d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(log).Error; err != nil {
			t.Fatalf("create log: %v", err)
		}
	}

	rr, body := doJSON(t, r, "GET", "/api/v1/integrations/"+integration.ID+"/logs?limit=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	logs := body["logs"].([]any)
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}

	// Newest first.
	first := logs[0].(map[string]any)
	if first["request_payload"] != "payload-4" {
		t.Fatalf("expected newest log first, got %v", first["request_payload"])
	}

	rr, body = doJSON(t, r, "GET", "/api/v1/integrations/"+integration.ID+"/logs?limit=2&offset=4", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if logs := body["logs"].([]any); len(logs) != 1 {
		t.Fatalf("expected 1 log at tail, got %d", len(logs))
	}
}
