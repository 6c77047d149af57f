package health

import (
	"testing"
	"time"
)

// TestStatusBecomesUnhealthyAtRetryThreshold exercises spec scenario 5: a
// service stays healthy through Retries-1 consecutive failures and only
// flips at the threshold.
func TestStatusBecomesUnhealthyAtRetryThreshold(t *testing.T) {
	cfg := Config{Retries: 3, Interval: time.Second, Timeout: time.Second}
	status := NewStatus()

	for i := 0; i < 2; i++ {
		status.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
		if !status.Healthy {
			t.Fatalf("expected still healthy after %d failures", i+1)
		}
	}

	status.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	if status.Healthy {
		t.Fatal("expected unhealthy after reaching retry threshold")
	}
}

func TestStatusRecoversOnSingleSuccess(t *testing.T) {
	cfg := Config{Retries: 3, Interval: time.Second, Timeout: time.Second}
	status := NewStatus()

	for i := 0; i < 3; i++ {
		status.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	}
	if status.Healthy {
		t.Fatal("expected unhealthy before recovery")
	}

	status.Update(Result{Healthy: true, CheckedAt: time.Now()}, cfg)
	if !status.Healthy {
		t.Fatal("expected healthy after a single success")
	}
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("expected failure counter reset, got %d", status.ConsecutiveFailures)
	}
}

func TestInStartPeriod(t *testing.T) {
	status := NewStatus()
	cfg := Config{StartPeriod: time.Hour}
	if !status.InStartPeriod(cfg) {
		t.Fatal("expected to be within the start period immediately after creation")
	}

	noGrace := Config{StartPeriod: 0}
	if status.InStartPeriod(noGrace) {
		t.Fatal("zero StartPeriod should never report being in the grace window")
	}
}
