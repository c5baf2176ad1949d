package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of a playback session
type State int

const (
	// StateIdle - no playback attempted yet
	StateIdle State = iota
	// StateLoading - binding a candidate URL to the output
	StateLoading
	// StatePlaying - audio running, position sampler active
	StatePlaying
	// StatePaused - suspended, position retained
	StatePaused
	// StateEnded - natural completion, position reset
	StateEnded
	// StateError - candidates exhausted, terminal until re-entry
	StateError
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// FailureClass distinguishes why a play attempt was rejected.
type FailureClass int

const (
	// ClassAbort - a prior operation on the handle was superseded;
	// the same candidate is worth one more try
	ClassAbort FailureClass = iota
	// ClassPolicy - blocked by an autoplay or user-gesture policy
	ClassPolicy
	// ClassUnsupported - the output cannot decode this format
	ClassUnsupported
	// ClassNetwork - the candidate could not be loaded
	ClassNetwork
)

// PlayError is the classified failure an Output returns from Play or Load.
type PlayError struct {
	Class FailureClass
	Err   error
}

func (e *PlayError) Error() string {
	return fmt.Sprintf("play failed (class %d): %v", e.Class, e.Err)
}

func (e *PlayError) Unwrap() error { return e.Err }

// ErrorKind is the terminal error classification surfaced to the user.
type ErrorKind int

const (
	// KindNone - session is not in an error state
	KindNone ErrorKind = iota
	// KindUnsupported - format cannot be played on this platform
	KindUnsupported
	// KindBlocked - playback blocked by platform policy
	KindBlocked
	// KindNetworkError - no candidate could be reached
	KindNetworkError
)

// String returns a human-readable error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnsupported:
		return "unsupported"
	case KindBlocked:
		return "blocked"
	case KindNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Output is the audio output handle a session drives, mirroring a media
// element: load a source, play, pause, report position and completion.
type Output interface {
	Load(ctx context.Context, url string) error
	Play(ctx context.Context) error
	Pause() error
	Position() float64
	OnEnded(func())
	Close() error
}

// SessionConfig contains per-session playback parameters
type SessionConfig struct {
	RetryDelay       time.Duration
	SampleInterval   time.Duration
	ResolveTimeout   time.Duration
	DefaultDuration  float64
	MaxSameRetries   int
	MaxExtraAttempts int
}

// Session drives playback of one message's audio artifact through an
// ordered candidate list. All methods are safe for concurrent use.
type Session struct {
	MessageID string

	output     Output
	resolver   *DurationResolver
	candidates []string
	config     SessionConfig
	logger     *slog.Logger

	state         State
	errorKind     ErrorKind
	position      float64
	duration      float64
	authoritative bool

	candidateIndex int
	sameRetries    int
	attempts       int

	// busy serializes toggle invocations; overlapping calls are dropped.
	busy bool

	onPosition func(float64)

	samplerCancel context.CancelFunc
	samplerWG     sync.WaitGroup

	mu sync.Mutex
}

// NewSession creates a playback session over a precomputed candidate list.
func NewSession(messageID string, output Output, candidates []string, resolver *DurationResolver, config SessionConfig, logger *slog.Logger) *Session {
	s := &Session{
		MessageID:  messageID,
		output:     output,
		resolver:   resolver,
		candidates: candidates,
		config:     config,
		logger:     logger,
		state:      StateIdle,
	}
	output.OnEnded(s.handleEnded)
	return s
}

// OnPosition registers a callback receiving position samples while playing.
func (s *Session) OnPosition(fn func(float64)) {
	s.mu.Lock()
	s.onPosition = fn
	s.mu.Unlock()
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ErrorKind returns the terminal error classification, KindNone otherwise.
func (s *Session) ErrorKind() ErrorKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorKind
}

// Position returns the last sampled playback position in seconds.
func (s *Session) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Duration returns the resolved duration and whether it is authoritative.
// Before resolution completes it reports the configured default.
func (s *Session) Duration() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duration == 0 {
		return s.config.DefaultDuration, false
	}
	return s.duration, s.authoritative
}

// AttemptedCandidates returns how many distinct candidates were tried.
func (s *Session) AttemptedCandidates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Toggle plays when stopped and pauses when playing. A call arriving while
// another toggle is in flight is dropped, not queued.
func (s *Session) Toggle(ctx context.Context, durationHint float64) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.logger.Debug("Toggle dropped, operation in progress",
			slog.String("message_id", s.MessageID),
		)
		return nil
	}
	s.busy = true
	state := s.state
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	switch state {
	case StatePlaying:
		return s.pause()
	case StatePaused:
		return s.resume(ctx)
	default:
		return s.play(ctx, durationHint)
	}
}

// play walks the candidate list from a fresh retry budget.
func (s *Session) play(ctx context.Context, durationHint float64) error {
	s.mu.Lock()
	if len(s.candidates) == 0 {
		s.state = StateError
		s.errorKind = KindNetworkError
		s.mu.Unlock()
		return errors.New("no playback candidates")
	}

	// Re-entry from Ended or Error restarts with fresh budgets.
	s.state = StateLoading
	s.errorKind = KindNone
	s.candidateIndex = 0
	s.sameRetries = 0
	s.attempts = 0
	s.position = 0
	s.mu.Unlock()

	s.resolveDuration(ctx, durationHint)

	maxAttempts := 1 + s.config.MaxExtraAttempts
	lastClass := ClassNetwork

	for {
		s.mu.Lock()
		if s.candidateIndex >= len(s.candidates) || s.attempts >= maxAttempts {
			s.state = StateError
			s.errorKind = terminalKind(lastClass)
			kind := s.errorKind
			s.mu.Unlock()

			s.logger.Warn("Playback candidates exhausted",
				slog.String("message_id", s.MessageID),
				slog.Int("attempted", s.attempts),
				slog.String("kind", kind.String()),
			)
			return fmt.Errorf("playback failed: %s", kind)
		}
		candidate := s.candidates[s.candidateIndex]
		s.attempts++
		s.mu.Unlock()

		class, err := s.attemptCandidate(ctx, candidate)
		if err == nil {
			return nil
		}
		lastClass = class

		s.mu.Lock()
		s.candidateIndex++
		s.sameRetries = 0
		s.state = StateLoading
		s.mu.Unlock()
	}
}

// attemptCandidate loads and plays one candidate, retrying the same URL
// once on an abort-class rejection.
func (s *Session) attemptCandidate(ctx context.Context, candidate string) (FailureClass, error) {
	if err := s.output.Load(ctx, candidate); err != nil {
		s.logger.Debug("Candidate failed to load",
			slog.String("message_id", s.MessageID),
			slog.String("candidate", candidate),
			slog.String("error", err.Error()),
		)
		return classOf(err), err
	}

	for {
		err := s.output.Play(ctx)
		if err == nil {
			s.mu.Lock()
			s.state = StatePlaying
			s.mu.Unlock()

			s.startSampler()

			s.logger.Info("Playback started",
				slog.String("message_id", s.MessageID),
				slog.String("candidate", candidate),
			)
			return 0, nil
		}

		class := classOf(err)
		if class != ClassAbort {
			s.logger.Debug("Candidate rejected",
				slog.String("message_id", s.MessageID),
				slog.String("candidate", candidate),
				slog.String("error", err.Error()),
			)
			return class, err
		}

		// Abort-class rejections come from a superseded operation on the
		// same handle; one delayed retry of the same candidate usually
		// succeeds.
		s.mu.Lock()
		retriesLeft := s.sameRetries < s.config.MaxSameRetries
		if retriesLeft {
			s.sameRetries++
		}
		s.mu.Unlock()

		if !retriesLeft {
			return class, err
		}

		s.logger.Debug("Retrying same candidate after abort",
			slog.String("message_id", s.MessageID),
			slog.String("candidate", candidate),
		)

		select {
		case <-ctx.Done():
			return ClassAbort, ctx.Err()
		case <-time.After(s.config.RetryDelay):
		}
	}
}

func (s *Session) pause() error {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return nil
	}
	s.state = StatePaused
	s.mu.Unlock()

	s.stopSampler()

	if err := s.output.Pause(); err != nil {
		return fmt.Errorf("failed to pause output: %w", err)
	}
	return nil
}

func (s *Session) resume(ctx context.Context) error {
	err := s.output.Play(ctx)
	if err != nil {
		return fmt.Errorf("failed to resume output: %w", err)
	}

	s.mu.Lock()
	s.state = StatePlaying
	s.mu.Unlock()

	s.startSampler()
	return nil
}

// Pause suspends playback directly, bypassing the toggle guard. Pausing a
// session that is not playing is a no-op.
func (s *Session) Pause() error {
	return s.pause()
}

// Close releases the output handle and stops background work.
func (s *Session) Close() error {
	s.stopSampler()
	return s.output.Close()
}

func (s *Session) handleEnded() {
	s.mu.Lock()
	if s.state != StatePlaying && s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	s.position = 0
	s.mu.Unlock()

	s.stopSampler()

	s.logger.Debug("Playback ended", slog.String("message_id", s.MessageID))
}

// resolveDuration races the resolver in the background so a slow network
// never delays the play attempt.
func (s *Session) resolveDuration(ctx context.Context, hint float64) {
	s.mu.Lock()
	candidate := s.candidates[s.candidateIndex]
	resolver := s.resolver
	s.mu.Unlock()

	if resolver == nil {
		result := Result{}
		if hint > 0 {
			result = Result{Seconds: hint, Resolved: true, Source: "hint"}
		}
		s.mu.Lock()
		s.duration, s.authoritative = result.OrDefault(s.config.DefaultDuration)
		s.mu.Unlock()
		return
	}

	go func() {
		result := resolver.Resolve(ctx, candidate, hint)
		seconds, authoritative := result.OrDefault(s.config.DefaultDuration)

		s.mu.Lock()
		s.duration = seconds
		s.authoritative = authoritative
		s.mu.Unlock()

		s.logger.Debug("Duration resolved",
			slog.String("message_id", s.MessageID),
			slog.Float64("seconds", seconds),
			slog.Bool("authoritative", authoritative),
			slog.String("source", result.Source),
		)
	}()
}

// startSampler runs the periodic position-sampling loop.
func (s *Session) startSampler() {
	s.stopSampler()

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.samplerCancel = cancel
	onPosition := s.onPosition
	s.mu.Unlock()

	s.samplerWG.Add(1)
	go func() {
		defer s.samplerWG.Done()

		ticker := time.NewTicker(s.config.SampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				position := s.output.Position()

				s.mu.Lock()
				s.position = position
				s.mu.Unlock()

				if onPosition != nil {
					onPosition(position)
				}
			}
		}
	}()
}

func (s *Session) stopSampler() {
	s.mu.Lock()
	cancel := s.samplerCancel
	s.samplerCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.samplerWG.Wait()
	}
}

// classOf extracts the failure class from an error, defaulting to network.
func classOf(err error) FailureClass {
	var playErr *PlayError
	if errors.As(err, &playErr) {
		return playErr.Class
	}
	return ClassNetwork
}

// terminalKind maps the final failure class to the user-facing error kind.
func terminalKind(class FailureClass) ErrorKind {
	switch class {
	case ClassUnsupported:
		return KindUnsupported
	case ClassPolicy:
		return KindBlocked
	default:
		return KindNetworkError
	}
}
