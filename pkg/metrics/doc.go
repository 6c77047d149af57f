/*
Package metrics provides Prometheus metrics collection and exposition for the
harness daemon.

Metrics are registered at package init and exposed via the standard
promhttp.Handler. The Collector type polls a Source (satisfied by
pkg/registry.Registry) on a fixed interval to keep gauges in sync with
registry state; no package in this module starts a Collector. Of the
counters and histograms, only the scheduler's two are updated (by
pkg/scheduler); the API-request, health-check and IP-allocation metrics are
registered but nothing in this module updates them.

	harness_services_total{state}                 gauge
	harness_tasks_total{state}                     gauge
	harness_subscribers_total                      gauge
	harness_api_requests_total{action,status}      counter
	harness_api_request_duration_seconds{action}   histogram
	harness_scheduler_layer_duration_seconds{direction}  histogram
	harness_scheduler_runs_total{direction,outcome} counter
	harness_health_check_duration_seconds{check_type}    histogram
	harness_health_transitions_total{from,to}      counter
	harness_ip_allocations_total{topology}         gauge
*/
package metrics
