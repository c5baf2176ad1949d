package recording

import "errors"

var (
	// ErrDeviceUnavailable means the audio input could not be acquired,
	// either because permission was denied or no device exists.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrRecordingFailed means capture failed after it had started.
	ErrRecordingFailed = errors.New("recording failed")

	// ErrRecordingTooShort means Stop was called before the minimum
	// duration elapsed. The session keeps recording.
	ErrRecordingTooShort = errors.New("recording too short")

	// ErrRecordingActive means the user already has a recording in
	// progress.
	ErrRecordingActive = errors.New("recording already in progress")

	// ErrUploadFailed means sending the artifact did not complete. The
	// artifact is retained and the upload may be retried.
	ErrUploadFailed = errors.New("upload failed")

	// ErrInvalidTransition means the requested operation is not allowed
	// in the session's current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)
