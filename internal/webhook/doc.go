// Package webhook delivers predictive-alert payloads to the downstream CMMS.
//
// Delivery is best-effort and fully decoupled from ingestion: Enqueue returns
// immediately, a bounded worker pool drains the buffer, each job is retried
// with exponential backoff up to a fixed attempt ceiling, and exhaustion is
// logged rather than surfaced. An unset destination URL turns the whole
// dispatcher into a no-op.
package webhook
