// Package events publishes session activity as JSON envelopes keyed by
// session id. Publishing is best effort: failures are logged and counted,
// never returned to the pipeline.
package events
