// Package recording implements the voice recording session state machine
// and the manager that enforces a single active recording per user. It
// tracks elapsed time, guards against too-short recordings and assembles
// captured chunks into an upload-ready artifact.
package recording
