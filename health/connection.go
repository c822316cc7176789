package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/dataconn/connection"
)

// ErrNotLive is the error of a connection that failed its ping.
var ErrNotLive = errors.New("health: connection not live")

// ConnectionOption configures a ConnectionChecker.
type ConnectionOption func(*ConnectionChecker)

// WithResetOnFailure resets a connection whose ping fails. A successful
// reset reports Degraded instead of Unhealthy.
func WithResetOnFailure() ConnectionOption {
	return func(c *ConnectionChecker) { c.reset = true }
}

// WithPingTimeout bounds each ping. The default is 5s.
func WithPingTimeout(d time.Duration) ConnectionOption {
	return func(c *ConnectionChecker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// ConnectionChecker checks one connection with its own liveness probe.
type ConnectionChecker struct {
	conn    connection.Connection
	timeout time.Duration
	reset   bool
}

// NewConnectionChecker returns a checker for conn.
func NewConnectionChecker(conn connection.Connection, opts ...ConnectionOption) *ConnectionChecker {
	c := &ConnectionChecker{conn: conn, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the connection key.
func (c *ConnectionChecker) Name() string { return c.conn.Key().String() }

// Check pings the connection, resetting it first if configured to.
func (c *ConnectionChecker) Check(ctx context.Context) Result {
	details := map[string]any{
		"kind": c.conn.Kind(),
		"name": c.conn.Name(),
	}
	if c.conn.State() == connection.StateClosed {
		details["state"] = connection.StateClosed.String()
		return Unhealthy("connection closed", connection.ErrClosed).WithDetails(details)
	}

	if c.ping(ctx) {
		details["state"] = c.conn.State().String()
		return Healthy("connection live").WithDetails(details)
	}
	if !c.reset {
		details["state"] = c.conn.State().String()
		return Unhealthy("ping failed", ErrNotLive).WithDetails(details)
	}

	if err := c.conn.Reset(ctx); err != nil {
		details["state"] = c.conn.State().String()
		return Unhealthy("ping failed and reset failed", fmt.Errorf("%w: %w", ErrNotLive, err)).WithDetails(details)
	}
	details["state"] = c.conn.State().String()
	if !c.ping(ctx) {
		return Unhealthy("ping failed after reset", ErrNotLive).WithDetails(details)
	}
	return Degraded("connection reset after failed ping").WithDetails(details)
}

func (c *ConnectionChecker) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.conn.IsLive(ctx)
}

// RegisterManager registers a ConnectionChecker for every connection m
// currently holds, named by connection key. It returns how many were
// registered.
func RegisterManager(agg *Aggregator, m *connection.Manager, opts ...ConnectionOption) int {
	n := 0
	for _, key := range m.Connections() {
		conn, ok := m.Lookup(key)
		if !ok {
			continue
		}
		agg.Register(key.String(), NewConnectionChecker(conn, opts...))
		n++
	}
	return n
}

// ManagerChecker checks every connection a Manager holds at check time, so
// connections opened later are included.
type ManagerChecker struct {
	m    *connection.Manager
	opts []ConnectionOption
}

// NewManagerChecker returns a checker over all of m's connections.
func NewManagerChecker(m *connection.Manager, opts ...ConnectionOption) *ManagerChecker {
	return &ManagerChecker{m: m, opts: opts}
}

func (c *ManagerChecker) Name() string { return "connections" }

// Check reports the worst status of the connections, with one detail entry
// per connection. No connections is healthy.
func (c *ManagerChecker) Check(ctx context.Context) Result {
	results := make(map[string]Result)
	for _, key := range c.m.Connections() {
		conn, ok := c.m.Lookup(key)
		if !ok {
			continue
		}
		results[key.String()] = NewConnectionChecker(conn, c.opts...).Check(ctx)
	}
	status := Overall(results)
	res := Result{Status: status, Message: summary(status, len(results)), Timestamp: time.Now(), Details: statusDetails(results)}
	if status == StatusUnhealthy {
		res.Error = ErrCheckFailed
	}
	return res
}

func summary(s Status, n int) string {
	switch s {
	case StatusHealthy:
		return fmt.Sprintf("%d connections live", n)
	case StatusDegraded:
		return "some connections were reset"
	default:
		return "some connections are down"
	}
}
