// Package audio provides the core audio data types for the voice message
// pipeline: immutable artifacts, capture chunks with ordered assembly, and
// the capture device abstraction.
package audio
