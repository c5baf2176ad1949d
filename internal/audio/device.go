package audio

// Device grants exclusive access to an audio input. Acquire fails when the
// user denied permission or no input is present.
type Device interface {
	// Acquire opens the device and starts a capture with the requested
	// encoding. An empty mimeType lets the backend choose its default.
	Acquire(mimeType string) (Capture, error)
}

// Capture is a live recording in progress on an acquired device.
type Capture interface {
	// Encoding returns the MIME type the backend actually records with,
	// which may differ from the requested one.
	Encoding() string

	// OnChunk registers the callback receiving encoded chunks as they
	// become available. Must be set before the first chunk is produced.
	OnChunk(func(Chunk))

	// OnLevel registers an optional callback receiving the current input
	// amplitude in [0, 1] for visualization. Purely informational.
	OnLevel(func(float64))

	// OnError registers the callback invoked when capture fails
	// mid-recording, for example when the device is unplugged.
	OnError(func(error))

	Pause() error
	Resume() error

	// Stop ends the capture and flushes any pending chunks.
	Stop() error

	// Release frees the underlying device. Safe to call more than once.
	Release()
}
