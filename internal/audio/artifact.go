package audio

import (
	"fmt"
	"math"
)

// Artifact is an immutable captured or converted audio payload. Conversion
// steps never mutate an artifact in place, they derive a new one.
type Artifact struct {
	Data     []byte
	MIME     string
	Duration float64 // seconds, > 0 when known
}

// Size returns the payload size in bytes.
func (a Artifact) Size() int {
	return len(a.Data)
}

// HasKnownDuration reports whether the duration is finite and positive.
// Zero, negative, NaN and Inf all count as unknown.
func (a Artifact) HasKnownDuration() bool {
	return ValidDuration(a.Duration)
}

// WithData derives a new artifact carrying different bytes and MIME type.
// The duration is dropped since re-encoded bytes may not preserve it exactly.
func (a Artifact) WithData(data []byte, mimeType string) Artifact {
	return Artifact{Data: data, MIME: mimeType}
}

// WithDuration derives a new artifact with the duration set. Invalid values
// are stored as zero so HasKnownDuration stays consistent.
func (a Artifact) WithDuration(seconds float64) Artifact {
	if !ValidDuration(seconds) {
		seconds = 0
	}
	return Artifact{Data: a.Data, MIME: a.MIME, Duration: seconds}
}

// Validate checks that the artifact can be uploaded.
func (a Artifact) Validate() error {
	if len(a.Data) == 0 {
		return fmt.Errorf("artifact has no data")
	}
	return nil
}

// ValidDuration reports whether a duration value is usable: finite and
// strictly positive.
func ValidDuration(seconds float64) bool {
	return !math.IsNaN(seconds) && !math.IsInf(seconds, 0) && seconds > 0
}
