package observe

import "go.opentelemetry.io/otel/attribute"

// ConnMeta identifies a connection, and optionally one of its methods, for
// telemetry.
type ConnMeta struct {
	Kind   string // registered type tag, e.g. "sql"
	Name   string // connection name, e.g. "pets_db"
	Key    string // canonical registry key
	Method string // read method, e.g. "query" (optional)
}

// ID returns <kind>.<name>.
func (m ConnMeta) ID() string {
	if m.Kind == "" {
		return m.Name
	}
	return m.Kind + "." + m.Name
}

// SpanName returns connection.<op>.<kind>.<method>, dropping empty parts.
func (m ConnMeta) SpanName(op string) string {
	name := "connection." + op
	if m.Kind != "" {
		name += "." + m.Kind
	}
	if m.Method != "" {
		name += "." + m.Method
	}
	return name
}

// WithMethod returns a copy of m scoped to method.
func (m ConnMeta) WithMethod(method string) ConnMeta {
	m.Method = method
	return m
}

// Attributes returns the metric and span attributes for m.
func (m ConnMeta) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("connection.kind", m.Kind),
		attribute.String("connection.name", m.Name),
	}
	if m.Method != "" {
		attrs = append(attrs, attribute.String("connection.method", m.Method))
	}
	return attrs
}
