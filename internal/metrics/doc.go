// Package metrics aggregates request outcomes into a run summary.
//
// # Collector
//
// The central [Collector] type is fed by every dispatch task:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//	collector.Record(outcome)
//	collector.Finish()
//	summary := collector.Summarize()
//
// Records are spread over 32 independently locked shards, each holding HDR
// histograms for latency and admission wait. Shards are merged when
// [Collector.Summarize] is called, which never mutates state, so it can be
// polled by live views while a run is in progress.
//
// # Summary
//
// [RunSummary] carries counts by outcome kind, failures by error kind,
// status-code counts, latency min/mean/max/p50/p90/p95/p99, admission-wait
// percentiles, the number of pacing epochs and the request rate. Duration
// fields have millisecond twins for JSON and YAML encoding.
package metrics
