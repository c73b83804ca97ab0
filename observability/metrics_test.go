package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	// Verify all metrics are initialized
	if m.PipelineRunsTotal == nil {
		t.Error("PipelineRunsTotal is nil")
	}
	if m.PipelineDuration == nil {
		t.Error("PipelineDuration is nil")
	}
	if m.PipelineErrorsTotal == nil {
		t.Error("PipelineErrorsTotal is nil")
	}
	if m.DecisionActions == nil {
		t.Error("DecisionActions is nil")
	}
	if m.PersonaDuration == nil {
		t.Error("PersonaDuration is nil")
	}
	if m.PersonaErrorsTotal == nil {
		t.Error("PersonaErrorsTotal is nil")
	}
	if m.PersonaSignals == nil {
		t.Error("PersonaSignals is nil")
	}
	if m.ExternalAPIRequestsTotal == nil {
		t.Error("ExternalAPIRequestsTotal is nil")
	}
	if m.StateStoreOpsTotal == nil {
		t.Error("StateStoreOpsTotal is nil")
	}
	if m.DBQueryTotal == nil {
		t.Error("DBQueryTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.CircuitBreakerState == nil {
		t.Error("CircuitBreakerState is nil")
	}
}

func TestRecordPipelineRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordPipelineRun("AAPL")
	m.RecordPipelineRun("AAPL")
	m.RecordPipelineRun("MSFT")

	aaplCount := testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("AAPL"))
	if aaplCount != 2 {
		t.Errorf("Expected AAPL count to be 2, got %f", aaplCount)
	}

	msftCount := testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("MSFT"))
	if msftCount != 1 {
		t.Errorf("Expected MSFT count to be 1, got %f", msftCount)
	}
}

func TestRecordPipelineError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordPipelineError("AAPL", "timeout")
	m.RecordPipelineError("AAPL", "timeout")
	m.RecordPipelineError("MSFT", "state_store")

	aaplTimeout := testutil.ToFloat64(m.PipelineErrorsTotal.WithLabelValues("AAPL", "timeout"))
	if aaplTimeout != 2 {
		t.Errorf("Expected AAPL timeout count to be 2, got %f", aaplTimeout)
	}
}

func TestRecordDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDecision("buy", 80.0)
	m.RecordDecision("short", 65.0)
	m.RecordDecision("hold", 50.0)

	buyCount := testutil.ToFloat64(m.DecisionActions.WithLabelValues("buy"))
	if buyCount != 1 {
		t.Errorf("Expected buy count to be 1, got %f", buyCount)
	}

	shortCount := testutil.ToFloat64(m.DecisionActions.WithLabelValues("short"))
	if shortCount != 1 {
		t.Errorf("Expected short count to be 1, got %f", shortCount)
	}
}

func TestRecordPersonaSignal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordPersonaSignal("bill_ackman", "bullish", 0.81)
	m.RecordPersonaSignal("bill_ackman", "bullish", 0.75)
	m.RecordPersonaSignal("michael_burry", "bearish", 0.17)

	ackmanBullish := testutil.ToFloat64(m.PersonaSignals.WithLabelValues("bill_ackman", "bullish"))
	if ackmanBullish != 2 {
		t.Errorf("Expected bill_ackman bullish count to be 2, got %f", ackmanBullish)
	}

	burryBearish := testutil.ToFloat64(m.PersonaSignals.WithLabelValues("michael_burry", "bearish"))
	if burryBearish != 1 {
		t.Errorf("Expected michael_burry bearish count to be 1, got %f", burryBearish)
	}
}

func TestRecordPersonaError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordPersonaError("bill_ackman", "data_fetch")
	m.RecordPersonaError("michael_burry", "llm_timeout")

	ackmanErr := testutil.ToFloat64(m.PersonaErrorsTotal.WithLabelValues("bill_ackman", "data_fetch"))
	if ackmanErr != 1 {
		t.Errorf("Expected bill_ackman data_fetch count to be 1, got %f", ackmanErr)
	}
}

func TestRecordExternalAPIRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordExternalAPIRequest("findata", "financial_metrics")
	m.RecordExternalAPIRequest("findata", "financial_metrics")
	m.RecordExternalAPIRequest("bedrock", "invoke")

	findataCount := testutil.ToFloat64(m.ExternalAPIRequestsTotal.WithLabelValues("findata", "financial_metrics"))
	if findataCount != 2 {
		t.Errorf("Expected findata financial_metrics count to be 2, got %f", findataCount)
	}
}

func TestRecordStateStoreOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordStateStoreOp("get", 5*time.Millisecond)
	m.RecordStateStoreOp("set", 8*time.Millisecond)
	m.RecordStateStoreOp("set", 7*time.Millisecond)

	setCount := testutil.ToFloat64(m.StateStoreOpsTotal.WithLabelValues("set"))
	if setCount != 2 {
		t.Errorf("Expected set count to be 2, got %f", setCount)
	}

	m.RecordStateStoreError("set")
	setErrors := testutil.ToFloat64(m.StateStoreErrorsTotal.WithLabelValues("set"))
	if setErrors != 1 {
		t.Errorf("Expected set error count to be 1, got %f", setErrors)
	}
}

func TestRecordDBQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDBQuery("insert", "persona_runs", 5*time.Millisecond)
	m.RecordDBQuery("select", "decisions", 8*time.Millisecond)

	insertRuns := testutil.ToFloat64(m.DBQueryTotal.WithLabelValues("insert", "persona_runs"))
	if insertRuns != 1 {
		t.Errorf("Expected insert persona_runs count to be 1, got %f", insertRuns)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHTTPRequest("GET", "/v1/state", "200", 10*time.Millisecond)
	m.RecordHTTPRequest("GET", "/v1/state", "404", 5*time.Millisecond)
	m.RecordHTTPRequest("PUT", "/v1/state", "204", 12*time.Millisecond)

	getOK := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/state", "200"))
	if getOK != 1 {
		t.Errorf("Expected GET /v1/state 200 count to be 1, got %f", getOK)
	}

	getAbsent := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/state", "404"))
	if getAbsent != 1 {
		t.Errorf("Expected GET /v1/state 404 count to be 1, got %f", getAbsent)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetCircuitBreakerState("findata", 0) // closed
	m.SetCircuitBreakerState("bedrock", 2) // open

	findataState := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("findata"))
	if findataState != 0 {
		t.Errorf("Expected findata state to be 0 (closed), got %f", findataState)
	}

	bedrockState := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("bedrock"))
	if bedrockState != 2 {
		t.Errorf("Expected bedrock state to be 2 (open), got %f", bedrockState)
	}

	m.RecordCircuitBreakerTrip("bedrock")
	m.RecordCircuitBreakerTrip("bedrock")

	bedrockTrips := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("bedrock"))
	if bedrockTrips != 2 {
		t.Errorf("Expected bedrock trips to be 2, got %f", bedrockTrips)
	}
}

func TestTimer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	timer := m.NewTimer()
	if timer == nil {
		t.Fatal("NewTimer returned nil")
	}

	time.Sleep(10 * time.Millisecond)

	duration := timer.Duration()
	if duration < 10*time.Millisecond {
		t.Errorf("Expected duration to be at least 10ms, got %v", duration)
	}

	timer.ObservePipeline("AAPL", "success")

	timer2 := m.NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer2.ObservePersona("bill_ackman")

	timer3 := m.NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer3.ObserveExternalAPI("findata", "prices")

	timer4 := m.NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer4.ObserveStateStore("get")
}

func TestGetMetrics_Singleton(t *testing.T) {
	original := globalMetrics
	defer func() { globalMetrics = original }()

	reg := prometheus.NewRegistry()
	testMetrics := NewMetrics(reg)
	globalMetrics = testMetrics

	m1 := GetMetrics()
	if m1 == nil {
		t.Fatal("GetMetrics returned nil")
	}

	m2 := GetMetrics()
	if m1 != m2 {
		t.Error("GetMetrics should return the same instance")
	}
}
