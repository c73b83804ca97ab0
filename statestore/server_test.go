package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"hedge-machine/models"
	"hedge-machine/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	server := httptest.NewServer(NewServer(store).Router())
	t.Cleanup(server.Close)
	return server
}

func TestServer_GetAbsentReturns404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/v1/state")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestServer_PutRejectsInvalidPayload(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/v1/state", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestClient_RoundTrip(t *testing.T) {
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))

	server := newTestServer(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	// Absent before any write
	if _, err := client.Get(ctx); !errors.Is(err, ErrStateAbsent) {
		t.Fatalf("expected ErrStateAbsent, got %v", err)
	}

	state := testState("AAPL")
	state.MergeSignal("bill_ackman", "AAPL", &models.SignalRecord{
		Signal:   models.SignalNeutral,
		Score:    8,
		MaxScore: 16,
	})

	if err := client.Set(ctx, state); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if !got.Portfolio.Cash.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("cash = %s, want 100000", got.Portfolio.Cash)
	}
	record := got.AnalystSignals["bill_ackman"]["AAPL"]
	if record == nil || record.Signal != models.SignalNeutral {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestClient_SerializedUpdateOverHTTP(t *testing.T) {
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))

	server := newTestServer(t)
	client := NewClient(server.URL)
	serialized := NewSerialized(client)
	ctx := context.Background()

	if err := serialized.Set(ctx, testState("AAPL")); err != nil {
		t.Fatalf("seed Set() error = %v", err)
	}

	err := serialized.Update(ctx, func(state *models.AgentState) error {
		state.MergeSignal("michael_burry", "AAPL", &models.SignalRecord{
			Signal:   models.SignalBearish,
			Score:    2,
			MaxScore: 12,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := serialized.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	record := got.AnalystSignals["michael_burry"]["AAPL"]
	if record == nil || record.Signal != models.SignalBearish {
		t.Errorf("unexpected record after update: %+v", record)
	}
}
