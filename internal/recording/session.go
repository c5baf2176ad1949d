package recording

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Clebio2030/zaprundeploy/internal/audio"
)

// State represents the current state of a recording session
type State int

const (
	// StateIdle - session created, nothing requested yet
	StateIdle State = iota
	// StateRequesting - waiting for device access
	StateRequesting
	// StateRecording - capture in progress
	StateRecording
	// StatePaused - capture suspended, elapsed time frozen
	StatePaused
	// StateStopped - capture ended, artifact being assembled
	StateStopped
	// StateReviewing - artifact ready, user deciding what to do
	StateReviewing
	// StateUploading - artifact being sent
	StateUploading
	// StateSent - upload confirmed, terminal
	StateSent
	// StateCancelled - session discarded, terminal
	StateCancelled
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateReviewing:
		return "reviewing"
	case StateUploading:
		return "uploading"
	case StateSent:
		return "sent"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MetadataFn extracts the embedded duration of an assembled artifact in
// seconds. Implementations should respect the context deadline.
type MetadataFn func(ctx context.Context, artifact audio.Artifact) (float64, error)

// SessionConfig contains per-session recording parameters
type SessionConfig struct {
	MinDuration     time.Duration
	TickInterval    time.Duration
	MetadataTimeout time.Duration
}

// Session is a single voice recording attempt for one user. All methods
// are safe for concurrent use.
type Session struct {
	UserKey   string
	ChatID    string
	StartTime time.Time

	device  audio.Device
	capture audio.Capture
	buffer  *audio.ChunkBuffer
	config  SessionConfig
	logger  *slog.Logger

	state    State
	artifact audio.Artifact

	// Elapsed time accumulates across pause/resume cycles.
	accumulated  time.Duration
	segmentStart time.Time
	lastActivity time.Time
	uploadErr    error

	released bool
	seq      uint32

	onTick   func(time.Duration)
	onLevel  func(float64)
	onError  func(error)
	metadata MetadataFn

	tickerCtx    context.Context
	tickerCancel context.CancelFunc
	tickerWG     sync.WaitGroup

	mu sync.RWMutex
}

// NewSession creates an idle recording session backed by the given device.
func NewSession(userKey string, device audio.Device, config SessionConfig, logger *slog.Logger) *Session {
	now := time.Now()
	return &Session{
		UserKey:      userKey,
		StartTime:    now,
		lastActivity: now,
		device:       device,
		config:       config,
		logger:       logger,
		state:        StateIdle,
	}
}

// OnTick registers a callback invoked on every tick interval with the
// current elapsed time while recording.
func (s *Session) OnTick(fn func(time.Duration)) {
	s.mu.Lock()
	s.onTick = fn
	s.mu.Unlock()
}

// OnLevel registers an optional amplitude callback for visualization.
func (s *Session) OnLevel(fn func(float64)) {
	s.mu.Lock()
	s.onLevel = fn
	s.mu.Unlock()
}

// OnError registers a callback invoked when capture fails mid-recording.
func (s *Session) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// SetMetadataFn registers the best-effort duration extractor applied to
// the assembled artifact on Stop.
func (s *Session) SetMetadataFn(fn MetadataFn) {
	s.mu.Lock()
	s.metadata = fn
	s.mu.Unlock()
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Elapsed returns the recorded time so far, excluding paused stretches.
func (s *Session) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsedLocked()
}

func (s *Session) elapsedLocked() time.Duration {
	elapsed := s.accumulated
	if s.state == StateRecording {
		elapsed += time.Since(s.segmentStart)
	}
	return elapsed
}

// LastActivity returns the time of the last state change
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Start requests device access and begins capturing. The preferred MIME
// type comes from format negotiation; empty means backend default.
func (s *Session) Start(preferredMIME string) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, state)
	}
	s.state = StateRequesting
	s.lastActivity = time.Now()
	s.mu.Unlock()

	capture, err := s.device.Acquire(preferredMIME)
	if err != nil {
		s.mu.Lock()
		s.state = StateCancelled
		s.lastActivity = time.Now()
		s.mu.Unlock()

		s.logger.Warn("Device acquisition failed",
			slog.String("user", s.UserKey),
			slog.String("requested_mime", preferredMIME),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.mu.Lock()
	s.capture = capture
	s.buffer = audio.NewChunkBuffer(capture.Encoding())
	s.state = StateRecording
	s.segmentStart = time.Now()
	s.lastActivity = s.segmentStart
	onLevel := s.onLevel
	s.mu.Unlock()

	capture.OnChunk(s.handleChunk)
	capture.OnError(s.handleCaptureError)
	if onLevel != nil {
		capture.OnLevel(onLevel)
	}

	s.startTicker()

	s.logger.Info("Recording started",
		slog.String("user", s.UserKey),
		slog.String("requested_mime", preferredMIME),
		slog.String("encoding", capture.Encoding()),
	)

	return nil
}

// Pause suspends capture. Elapsed time stops accumulating.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StateRecording {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, state)
	}
	s.accumulated += time.Since(s.segmentStart)
	s.state = StatePaused
	s.lastActivity = time.Now()
	capture := s.capture
	s.mu.Unlock()

	if err := capture.Pause(); err != nil {
		return fmt.Errorf("failed to pause capture: %w", err)
	}
	return nil
}

// Resume continues a paused capture.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, state)
	}
	s.state = StateRecording
	s.segmentStart = time.Now()
	s.lastActivity = s.segmentStart
	capture := s.capture
	s.mu.Unlock()

	if err := capture.Resume(); err != nil {
		return fmt.Errorf("failed to resume capture: %w", err)
	}
	return nil
}

// Stop ends the capture and assembles the artifact. Recordings shorter
// than the configured minimum are rejected and the session keeps its
// current state so the user can keep recording.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot stop from %s", ErrInvalidTransition, state)
	}

	elapsed := s.elapsedLocked()
	if elapsed < s.config.MinDuration {
		s.mu.Unlock()
		s.logger.Debug("Stop rejected, recording below minimum",
			slog.String("user", s.UserKey),
			slog.Duration("elapsed", elapsed),
			slog.Duration("minimum", s.config.MinDuration),
		)
		return fmt.Errorf("%w: %.1fs recorded, %.1fs required",
			ErrRecordingTooShort, elapsed.Seconds(), s.config.MinDuration.Seconds())
	}

	if s.state == StateRecording {
		s.accumulated += time.Since(s.segmentStart)
	}
	s.state = StateStopped
	s.lastActivity = time.Now()
	capture := s.capture
	buffer := s.buffer
	metadata := s.metadata
	s.mu.Unlock()

	s.stopTicker()

	if err := capture.Stop(); err != nil {
		s.logger.Warn("Capture stop reported error",
			slog.String("user", s.UserKey),
			slog.String("error", err.Error()),
		)
	}
	s.releaseDevice()

	artifact, err := buffer.Assemble()
	if err != nil {
		s.mu.Lock()
		s.state = StateCancelled
		s.lastActivity = time.Now()
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}

	// The wall-clock estimate stands unless embedded metadata yields a
	// valid duration.
	duration := s.Elapsed().Seconds()
	if metadata != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.MetadataTimeout)
		probed, probeErr := metadata(ctx, artifact)
		cancel()
		if probeErr == nil && audio.ValidDuration(probed) {
			duration = probed
		}
	}
	artifact = artifact.WithDuration(duration)

	s.mu.Lock()
	s.artifact = artifact
	s.state = StateReviewing
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.logger.Info("Recording stopped",
		slog.String("user", s.UserKey),
		slog.Float64("duration", artifact.Duration),
		slog.Int("size_bytes", artifact.Size()),
		slog.String("encoding", artifact.MIME),
	)

	return nil
}

// Artifact returns the assembled artifact. Valid from Reviewing onward.
func (s *Session) Artifact() (audio.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case StateReviewing, StateUploading, StateSent:
		return s.artifact, nil
	default:
		return audio.Artifact{}, fmt.Errorf("%w: no artifact in %s", ErrInvalidTransition, s.state)
	}
}

// BeginUpload marks the artifact as being sent.
func (s *Session) BeginUpload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return fmt.Errorf("%w: cannot upload from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateUploading
	s.uploadErr = nil
	s.lastActivity = time.Now()
	return nil
}

// FinishUpload records the upload outcome. On failure the session returns
// to Reviewing so the upload can be retried with the same artifact.
func (s *Session) FinishUpload(uploadErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUploading {
		return fmt.Errorf("%w: cannot finish upload from %s", ErrInvalidTransition, s.state)
	}

	s.lastActivity = time.Now()
	if uploadErr != nil {
		s.state = StateReviewing
		s.uploadErr = fmt.Errorf("%w: %v", ErrUploadFailed, uploadErr)
		s.logger.Warn("Upload failed, artifact retained",
			slog.String("user", s.UserKey),
			slog.String("error", uploadErr.Error()),
		)
		return nil
	}

	s.state = StateSent
	s.uploadErr = nil
	return nil
}

// UploadError reports the last failed upload attempt, nil after a
// successful send or before any attempt.
func (s *Session) UploadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploadErr
}

// Cancel discards the session from any state. It is idempotent and
// releases the device exactly once.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state == StateCancelled || s.state == StateSent {
		s.mu.Unlock()
		return
	}
	capture := s.capture
	s.state = StateCancelled
	s.artifact = audio.Artifact{}
	s.lastActivity = time.Now()
	if s.buffer != nil {
		s.buffer.Reset()
	}
	s.mu.Unlock()

	s.stopTicker()
	if capture != nil {
		if err := capture.Stop(); err != nil {
			s.logger.Debug("Capture stop during cancel",
				slog.String("user", s.UserKey),
				slog.String("error", err.Error()),
			)
		}
	}
	s.releaseDevice()

	s.logger.Info("Recording cancelled", slog.String("user", s.UserKey))
}

// Terminal reports whether the session reached a final state.
func (s *Session) Terminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateSent || s.state == StateCancelled
}

func (s *Session) handleChunk(chunk audio.Chunk) {
	s.mu.Lock()
	buffer := s.buffer
	s.seq++
	chunk.Sequence = s.seq
	s.mu.Unlock()

	if buffer == nil {
		return
	}
	if err := buffer.Add(chunk); err != nil {
		s.logger.Warn("Dropping capture chunk",
			slog.String("user", s.UserKey),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Session) handleCaptureError(captureErr error) {
	s.mu.RLock()
	onError := s.onError
	state := s.state
	s.mu.RUnlock()

	if state != StateRecording && state != StatePaused {
		return
	}

	s.logger.Error("Capture failed mid-recording",
		slog.String("user", s.UserKey),
		slog.String("error", captureErr.Error()),
	)

	s.Cancel()

	if onError != nil {
		onError(fmt.Errorf("%w: %v", ErrRecordingFailed, captureErr))
	}
}

// startTicker runs the elapsed-time callback loop for the session.
func (s *Session) startTicker() {
	s.mu.Lock()
	if s.config.TickInterval <= 0 || s.onTick == nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.tickerCtx = ctx
	s.tickerCancel = cancel
	onTick := s.onTick
	s.mu.Unlock()

	s.tickerWG.Add(1)
	go func() {
		defer s.tickerWG.Done()

		ticker := time.NewTicker(s.config.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.State() == StateRecording {
					onTick(s.Elapsed())
				}
			}
		}
	}()
}

func (s *Session) stopTicker() {
	s.mu.Lock()
	cancel := s.tickerCancel
	s.tickerCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.tickerWG.Wait()
	}
}

// releaseDevice frees the capture device exactly once.
func (s *Session) releaseDevice() {
	s.mu.Lock()
	if s.released || s.capture == nil {
		s.mu.Unlock()
		return
	}
	s.released = true
	capture := s.capture
	s.mu.Unlock()

	capture.Release()
}
