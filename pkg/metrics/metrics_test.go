package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "listing-expiration"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)
	m.IncFailure(job)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, 1.0, counterValue(t, mfs, "listingz_cron_job_success_total", "job", job))
	require.Equal(t, 2.0, counterValue(t, mfs, "listingz_cron_job_failure_total", "job", job))

	hist := findMetric(t, mfs, "listingz_cron_job_duration_seconds", "job", job).GetHistogram()
	require.EqualValues(t, 1, hist.GetSampleCount())
	require.InDelta(t, 0.25, hist.GetSampleSum(), 0.0001)
}

func TestCronJobMetricsEmptyJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncSuccess("")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 1.0, counterValue(t, mfs, "listingz_cron_job_success_total", "job", "unknown"))
}

func TestNilRecordersAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	cron.IncFailure("x")
	cron.ObserveDuration("x", time.Second)

	var domain *DomainMetrics
	domain.IncSettlement("stripe", OutcomeSettled)
	domain.AddInventoryCredit("VIP", 2)
	domain.AddInventoryDebit("VIP", 1)
	domain.AddSweepTransitions("EXPIRED", 3)
	domain.IncReportThreshold()

	NewCronJobMetrics(nil).IncSuccess("x")
	NewDomainMetrics(nil).IncSettlement("admin", OutcomeReplayed)
}

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.IncSettlement("stripe", OutcomeSettled)
	m.IncSettlement("stripe", OutcomeSettled)
	m.IncSettlement("admin", OutcomeReplayed)
	m.AddInventoryCredit("VIP", 2)
	m.AddInventoryCredit("VIP", 0)
	m.AddInventoryDebit("GOLD", 1)
	m.AddSweepTransitions("EXPIRED", 3)
	m.AddSweepTransitions("EXPIRING_SOON", 0)
	m.IncReportThreshold()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	settled := findMetric(t, mfs, "listingz_order_settlements_total", "source", "stripe")
	require.Equal(t, 2.0, settled.GetCounter().GetValue())
	require.Equal(t, 2.0, counterValue(t, mfs, "listingz_inventory_credited_units_total", "tier", "VIP"))
	require.Equal(t, 1.0, counterValue(t, mfs, "listingz_inventory_debited_units_total", "tier", "GOLD"))
	require.Equal(t, 3.0, counterValue(t, mfs, "listingz_listing_sweep_transitions_total", "status", "EXPIRED"))

	family := findFamily(mfs, "listingz_listing_sweep_transitions_total")
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 1)

	threshold := findFamily(mfs, "listingz_listing_report_threshold_total")
	require.NotNil(t, threshold)
	require.Equal(t, 1.0, threshold.GetMetric()[0].GetCounter().GetValue())
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, labelName, labelValue string) float64 {
	t.Helper()
	return findMetric(t, mfs, name, labelName, labelValue).GetCounter().GetValue()
}

func findMetric(t *testing.T, mfs []*dto.MetricFamily, name, labelName, labelValue string) *dto.Metric {
	t.Helper()
	mf := findFamily(mfs, name)
	require.NotNil(t, mf, "metric family %s not found", name)
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == labelName && pair.GetValue() == labelValue {
				return metric
			}
		}
	}
	t.Fatalf("metric %s missing label %s=%s", name, labelName, labelValue)
	return nil
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/orders", 201, 40*time.Millisecond)
	m.Observe("POST", "/api/v1/orders", 201, 60*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 2.0, counterValue(t, mfs, "listingz_http_requests_total", "route", "/api/v1/orders"))

	hist := findMetric(t, mfs, "listingz_http_request_duration_seconds", "route", "/api/v1/orders").GetHistogram()
	require.EqualValues(t, 2, hist.GetSampleCount())

	var nilMetrics *HTTPMetrics
	nilMetrics.Observe("GET", "/", 200, time.Millisecond)
}

func TestOutboxMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Inc("order_paid", PublishPublished)
	m.Inc("order_paid", PublishPublished)
	m.Inc("order_paid", PublishDeadLettered)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 3.0, sumCounters(findFamily(mfs, "listingz_outbox_publish_total")))
	require.Equal(t, 1.0, counterValue(t, mfs, "listingz_outbox_publish_total", "outcome", PublishDeadLettered))

	var nilMetrics *OutboxMetrics
	nilMetrics.Inc("order_paid", PublishRetry)
}

func sumCounters(mf *dto.MetricFamily) float64 {
	var total float64
	for _, metric := range mf.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	return total
}
