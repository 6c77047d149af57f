/*
Package health implements HTTP, TCP, and exec health checks for harness
services, plus the Monitor that runs one on a schedule and reports
transitions to a Sink.

HTTPChecker, TCPChecker, and ExecChecker all satisfy Checker (Check,
Type) and use fluent With* builders for optional settings. Status
applies hysteresis over repeated Results: a service isn't marked
unhealthy until Config.Retries consecutive failures, and recovers on the
first success, matching spec §4.E. Monitor pairs a Checker and a Config
with a target service name, runs it on Config.Interval after an initial
Config.StartPeriod grace period, records every probe result through
Sink.SetServiceHealth, and calls Sink.SetServiceState only when the
service's public status actually changes, not on every probe; Group
manages one Monitor per service for callers running several at once
(cmd/harnessd's orchestrator does not use Group: it keeps each running
service's Monitor itself).

	checker := health.NewHTTPChecker("http://127.0.0.1:8080/health")
	mon := health.NewMonitor("web", checker, health.DefaultConfig(), sink)
	mon.Start(ctx)
*/
package health
