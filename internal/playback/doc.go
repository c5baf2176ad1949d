// Package playback implements the playback side of the voice message
// pipeline: URL candidate generation with platform-specific fallbacks,
// racing duration resolution with a bounded timeout, and the playback
// session state machine with its retry policy.
package playback
