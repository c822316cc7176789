// Package resilience keeps connection reads alive across transient failures.
//
// Retry re-runs a failed read with a fixed or growing backoff, calling a
// reset hook before every retry so that a stale connection is rebuilt before
// it is used again. RateLimiter throttles calls to metered APIs and Timeout
// bounds one attempt. Executor composes the three:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.DefaultReadRetry())),
//	    resilience.WithReset(conn.Reset),
//	    resilience.WithTimeout(30*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    rows, err = runQuery(ctx)
//	    return err
//	})
//
// When every attempt fails the last error is returned unchanged.
package resilience
