package playback

import (
	"context"
	"log/slog"
	"time"

	"github.com/Clebio2030/zaprundeploy/internal/audio"
)

// Result is the outcome of a duration resolution attempt. Unresolved is a
// value, never an error; callers substitute a default.
type Result struct {
	Seconds  float64
	Resolved bool
	Source   string
}

// OrDefault returns the resolved duration, or the default flagged as
// non-authoritative when resolution failed.
func (r Result) OrDefault(defaultSeconds float64) (seconds float64, authoritative bool) {
	if r.Resolved {
		return r.Seconds, true
	}
	return defaultSeconds, false
}

// Strategy is one independent way of determining an artifact's duration,
// for example a metadata-only media load or a fetch-and-decode pass.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, url string) (float64, error)
}

// DurationResolver races its strategies against a shared budget and takes
// the first valid answer. Losing strategies are abandoned, not awaited.
type DurationResolver struct {
	strategies []Strategy
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDurationResolver creates a resolver over the given strategies.
func NewDurationResolver(strategies []Strategy, timeout time.Duration, logger *slog.Logger) *DurationResolver {
	return &DurationResolver{
		strategies: strategies,
		timeout:    timeout,
		logger:     logger,
	}
}

type strategyAnswer struct {
	seconds float64
	source  string
	err     error
}

// Resolve determines the duration of the artifact at url. A valid hint
// wins immediately without touching the network. Any value that is not
// finite and positive never resolves.
func (r *DurationResolver) Resolve(ctx context.Context, url string, hint float64) Result {
	if audio.ValidDuration(hint) {
		return Result{Seconds: hint, Resolved: true, Source: "hint"}
	}

	if len(r.strategies) == 0 {
		return Result{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Buffered so stragglers can deliver after a winner is chosen and
	// simply be dropped.
	answers := make(chan strategyAnswer, len(r.strategies))

	for _, strategy := range r.strategies {
		go func(s Strategy) {
			seconds, err := s.Resolve(ctx, url)
			answers <- strategyAnswer{seconds: seconds, source: s.Name(), err: err}
		}(strategy)
	}

	pending := len(r.strategies)
	for pending > 0 {
		select {
		case <-ctx.Done():
			r.logger.Debug("Duration resolution timed out",
				slog.String("url", url),
				slog.Duration("budget", r.timeout),
			)
			return Result{}

		case answer := <-answers:
			pending--
			if answer.err != nil {
				r.logger.Debug("Duration strategy failed",
					slog.String("strategy", answer.source),
					slog.String("url", url),
					slog.String("error", answer.err.Error()),
				)
				continue
			}
			if !audio.ValidDuration(answer.seconds) {
				r.logger.Debug("Duration strategy returned invalid value",
					slog.String("strategy", answer.source),
					slog.Float64("value", answer.seconds),
				)
				continue
			}
			return Result{Seconds: answer.seconds, Resolved: true, Source: answer.source}
		}
	}

	return Result{}
}
