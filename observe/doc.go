// Package observe instruments connection lifecycles and reads.
//
// It provides a JSON structured Logger with credential redaction,
// OpenTelemetry metrics for construction, reset, reads, cache lookups and
// retries, and spans named connection.<op>.<kind>.<method>. Exporters are
// created in the exporters subpackage.
package observe
