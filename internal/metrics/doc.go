// Package metrics exposes Prometheus collectors for the transaction logs and
// their storage.
//
// Collectors are vectors labelled by log name (and variant for log-level
// metrics). Registering the same vector twice on a registerer reuses the
// collector already registered, so several logs can share one registry.
// Every method is safe on a nil receiver, which is how metrics are disabled.
package metrics
