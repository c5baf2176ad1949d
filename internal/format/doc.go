// Package format implements recording format negotiation and audio file
// classification. It builds platform-aware MIME preference lists, maps MIME
// types to extensions and constructs sanitized stored file names.
package format
