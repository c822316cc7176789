// Package health reports whether connections are usable.
//
// A Checker reports a Result with a Status: Healthy, Degraded or Unhealthy.
// ConnectionChecker adapts any connection.Connection, pinging it and
// optionally resetting it when the ping fails. An Aggregator runs many
// checkers under one deadline.
//
//	agg := health.NewAggregator()
//	health.RegisterManager(agg, manager, health.WithResetOnFailure())
//	results := agg.CheckAll(ctx)
//	overall := health.Overall(results)
//
// The HTTP handlers expose liveness, readiness and a JSON report:
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//	// GET /healthz, /readyz, /health, /health/{name}
package health
