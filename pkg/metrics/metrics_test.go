package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncJobMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncJobMetrics(reg)

	m.ObserveDuration("push", 250*time.Millisecond)
	m.IncSuccess("push")
	m.IncFailure("pull")
	m.IncFailure("")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	if fam := byName["sync_job_success"]; fam == nil || fam.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one push success, got %v", fam)
	}
	failures := byName["sync_job_failure"]
	if failures == nil || len(failures.GetMetric()) != 2 {
		t.Fatalf("expected pull and unknown failure series, got %v", failures)
	}
}

func TestNilReceiversAreSafe(t *testing.T) {
	var s *SyncJobMetrics
	s.ObserveDuration("push", time.Second)
	s.IncSuccess("push")
	s.IncFailure("push")

	var o *OrderMetrics
	o.IncSettlement()
	o.IncAdmissionDenial("stock")
	o.IncKioskOrder()
}

func TestOrderMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncSettlement()
	m.IncSettlement()
	m.IncAdmissionDenial("stock")
	m.IncKioskOrder()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() == "settlements_total" {
			if got := fam.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Fatalf("expected 2 settlements, got %v", got)
			}
		}
	}
}
