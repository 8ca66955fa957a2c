// Package validator confirms, with timeout and cancellation, that an
// exposed stream is actually advancing — producing distinct presentation
// timestamps — before it is handed to a consumer.
//
// Validation is last-writer-wins per stream identity: a newer call for
// the same stream aborts any in-flight one, which resolves as "aborted"
// rather than being left pending. Structurally impossible streams (no
// tracks, inactive, non-live video) are rejected synchronously without
// starting a timer.
package validator
