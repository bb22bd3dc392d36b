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
	if m.ScreenRunsTotal == nil {
		t.Error("ScreenRunsTotal is nil")
	}
	if m.ScreenRunDuration == nil {
		t.Error("ScreenRunDuration is nil")
	}
	if m.ScreenRowsTotal == nil {
		t.Error("ScreenRowsTotal is nil")
	}
	if m.RowErrorsTotal == nil {
		t.Error("RowErrorsTotal is nil")
	}
	if m.EvaluationsTotal == nil {
		t.Error("EvaluationsTotal is nil")
	}
	if m.VerdictRatings == nil {
		t.Error("VerdictRatings is nil")
	}
	if m.VerdictScores == nil {
		t.Error("VerdictScores is nil")
	}
	if m.ExternalAPIRequestsTotal == nil {
		t.Error("ExternalAPIRequestsTotal is nil")
	}
	if m.ExternalAPIErrorsTotal == nil {
		t.Error("ExternalAPIErrorsTotal is nil")
	}
	if m.ExternalAPIDuration == nil {
		t.Error("ExternalAPIDuration is nil")
	}
	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration is nil")
	}
	if m.DBQueryTotal == nil {
		t.Error("DBQueryTotal is nil")
	}
	if m.DBErrorsTotal == nil {
		t.Error("DBErrorsTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration is nil")
	}
	if m.CircuitBreakerState == nil {
		t.Error("CircuitBreakerState is nil")
	}
	if m.CircuitBreakerTrips == nil {
		t.Error("CircuitBreakerTrips is nil")
	}
}

func TestRecordScreenRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordScreenRun("csv", "completed", 100*time.Millisecond)
	m.RecordScreenRun("csv", "completed", 50*time.Millisecond)
	m.RecordScreenRun("chain", "failed", 10*time.Millisecond)

	csvCompleted := testutil.ToFloat64(m.ScreenRunsTotal.WithLabelValues("csv", "completed"))
	if csvCompleted != 2 {
		t.Errorf("Expected csv completed count to be 2, got %f", csvCompleted)
	}

	chainFailed := testutil.ToFloat64(m.ScreenRunsTotal.WithLabelValues("chain", "failed"))
	if chainFailed != 1 {
		t.Errorf("Expected chain failed count to be 1, got %f", chainFailed)
	}
}

func TestRecordScreenRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordScreenRows("csv", 25)
	m.RecordScreenRows("csv", 10)

	rows := testutil.ToFloat64(m.ScreenRowsTotal.WithLabelValues("csv"))
	if rows != 35 {
		t.Errorf("Expected csv rows to be 35, got %f", rows)
	}
}

func TestRecordRowError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRowError("option_type")
	m.RecordRowError("option_type")
	m.RecordRowError("expiration_date")

	typeErrors := testutil.ToFloat64(m.RowErrorsTotal.WithLabelValues("option_type"))
	if typeErrors != 2 {
		t.Errorf("Expected option_type error count to be 2, got %f", typeErrors)
	}

	expErrors := testutil.ToFloat64(m.RowErrorsTotal.WithLabelValues("expiration_date"))
	if expErrors != 1 {
		t.Errorf("Expected expiration_date error count to be 1, got %f", expErrors)
	}
}

func TestRecordVerdict(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordVerdict("call", "Strong Buy", 14)
	m.RecordVerdict("call", "Hold", 3)
	m.RecordVerdict("put", "Avoid", 0)

	callEvals := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("call"))
	if callEvals != 2 {
		t.Errorf("Expected call evaluations to be 2, got %f", callEvals)
	}

	strongBuys := testutil.ToFloat64(m.VerdictRatings.WithLabelValues("Strong Buy"))
	if strongBuys != 1 {
		t.Errorf("Expected Strong Buy count to be 1, got %f", strongBuys)
	}

	avoids := testutil.ToFloat64(m.VerdictRatings.WithLabelValues("Avoid"))
	if avoids != 1 {
		t.Errorf("Expected Avoid count to be 1, got %f", avoids)
	}
}

func TestRecordExternalAPIRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordExternalAPIRequest("tradier", "get_chain")
	m.RecordExternalAPIRequest("tradier", "get_chain")
	m.RecordExternalAPIRequest("alpaca", "get_bars")

	chainRequests := testutil.ToFloat64(m.ExternalAPIRequestsTotal.WithLabelValues("tradier", "get_chain"))
	if chainRequests != 2 {
		t.Errorf("Expected tradier get_chain count to be 2, got %f", chainRequests)
	}

	barRequests := testutil.ToFloat64(m.ExternalAPIRequestsTotal.WithLabelValues("alpaca", "get_bars"))
	if barRequests != 1 {
		t.Errorf("Expected alpaca get_bars count to be 1, got %f", barRequests)
	}
}

func TestRecordExternalAPIError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordExternalAPIError("tradier", "get_chain", "timeout")
	m.RecordExternalAPIError("alpaca", "get_bars", "rate_limit")

	chainTimeout := testutil.ToFloat64(m.ExternalAPIErrorsTotal.WithLabelValues("tradier", "get_chain", "timeout"))
	if chainTimeout != 1 {
		t.Errorf("Expected tradier timeout count to be 1, got %f", chainTimeout)
	}
}

func TestRecordExternalAPIDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordExternalAPIDuration("tradier", "get_chain", 500*time.Millisecond)
	m.RecordExternalAPIDuration("alpaca", "get_bars", 200*time.Millisecond)

	// Verify histograms are recorded (just check they don't panic)
}

func TestRecordDBQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDBQuery("select", "screen_runs", 10*time.Millisecond)
	m.RecordDBQuery("insert", "screen_runs", 5*time.Millisecond)
	m.RecordDBQuery("select", "market_data_cache", 8*time.Millisecond)

	selectRuns := testutil.ToFloat64(m.DBQueryTotal.WithLabelValues("select", "screen_runs"))
	if selectRuns != 1 {
		t.Errorf("Expected select screen_runs count to be 1, got %f", selectRuns)
	}

	insertRuns := testutil.ToFloat64(m.DBQueryTotal.WithLabelValues("insert", "screen_runs"))
	if insertRuns != 1 {
		t.Errorf("Expected insert screen_runs count to be 1, got %f", insertRuns)
	}
}

func TestRecordDBError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDBError("select", "screen_runs")
	m.RecordDBError("insert", "market_data_cache")

	selectError := testutil.ToFloat64(m.DBErrorsTotal.WithLabelValues("select", "screen_runs"))
	if selectError != 1 {
		t.Errorf("Expected select error count to be 1, got %f", selectError)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHTTPRequest("GET", "/api/health", "200", 10*time.Millisecond, 256)
	m.RecordHTTPRequest("POST", "/api/screen", "200", 2*time.Second, 4096)
	m.RecordHTTPRequest("GET", "/api/runs", "500", 50*time.Millisecond, 128)

	healthOK := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200"))
	if healthOK != 1 {
		t.Errorf("Expected GET /api/health 200 count to be 1, got %f", healthOK)
	}

	runsError := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/runs", "500"))
	if runsError != 1 {
		t.Errorf("Expected GET /api/runs 500 count to be 1, got %f", runsError)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	// Set initial states
	m.SetCircuitBreakerState("tradier", 0) // closed
	m.SetCircuitBreakerState("alpaca", 2)  // open

	tradierState := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("tradier"))
	if tradierState != 0 {
		t.Errorf("Expected tradier state to be 0 (closed), got %f", tradierState)
	}

	alpacaState := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("alpaca"))
	if alpacaState != 2 {
		t.Errorf("Expected alpaca state to be 2 (open), got %f", alpacaState)
	}

	// Record trips
	m.RecordCircuitBreakerTrip("tradier")
	m.RecordCircuitBreakerTrip("tradier")

	tradierTrips := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("tradier"))
	if tradierTrips != 2 {
		t.Errorf("Expected tradier trips to be 2, got %f", tradierTrips)
	}
}

func TestTimer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	timer := m.NewTimer()
	if timer == nil {
		t.Fatal("NewTimer returned nil")
	}

	// Sleep a small amount to ensure duration is measurable
	time.Sleep(10 * time.Millisecond)

	duration := timer.Duration()
	if duration < 10*time.Millisecond {
		t.Errorf("Expected duration to be at least 10ms, got %v", duration)
	}

	// Test ObserveScreenRun
	timer.ObserveScreenRun("csv", "completed")

	// Test ObserveExternalAPI
	timer2 := m.NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer2.ObserveExternalAPI("tradier", "get_chain")

	// Test ObserveDB
	timer3 := m.NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer3.ObserveDB("select", "screen_runs")
}

func TestGetMetrics_Singleton(t *testing.T) {
	// Save and restore global metrics state
	original := globalMetrics
	defer func() { globalMetrics = original }()

	// Create a fresh metrics instance with a dedicated registry
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

func TestInitMetrics_SetsGlobal(t *testing.T) {
	// Save and restore global metrics state
	original := globalMetrics
	defer func() { globalMetrics = original }()

	// Create a new registry for isolation
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	globalMetrics = m

	// Verify it's the global instance
	if globalMetrics != m {
		t.Error("globalMetrics should match the instance we set")
	}

	// Verify GetMetrics returns it
	if GetMetrics() != m {
		t.Error("GetMetrics should return the global instance")
	}
}
