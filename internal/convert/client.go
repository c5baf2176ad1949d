package convert

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Clebio2030/zaprundeploy/internal/audio"
)

// RawAudio is decoded PCM used as the intermediate between a decoder and
// an encoder.
type RawAudio struct {
	Samples    []byte
	SampleRate int
	Channels   int
}

// Decoder decodes an encoded artifact into raw PCM.
type Decoder interface {
	Decode(ctx context.Context, artifact audio.Artifact) (RawAudio, error)
}

// Encoder encodes raw PCM into the target MIME type.
type Encoder interface {
	Encode(ctx context.Context, raw RawAudio, targetMIME string) (audio.Artifact, error)
}

// compatibleEncodings are encodings that play everywhere without a
// client-side re-encode.
var compatibleEncodings = []string{"mp3", "mp4", "aac", "mpeg"}

// ClientPipeline re-encodes recorded artifacts toward a broadly compatible
// format before upload. It is strictly best-effort: on any failure the
// caller gets the original artifact back unchanged.
type ClientPipeline struct {
	decoder Decoder
	encoder Encoder
	timeout time.Duration
	logger  *slog.Logger
}

// NewClientPipeline creates a client-side conversion pipeline.
func NewClientPipeline(decoder Decoder, encoder Encoder, timeout time.Duration, logger *slog.Logger) *ClientPipeline {
	return &ClientPipeline{
		decoder: decoder,
		encoder: encoder,
		timeout: timeout,
		logger:  logger,
	}
}

// NeedsConversion reports whether the artifact's encoding warrants a
// client-side re-encode.
func NeedsConversion(mimeType string) bool {
	lower := strings.ToLower(mimeType)
	for _, compatible := range compatibleEncodings {
		if strings.Contains(lower, compatible) {
			return false
		}
	}
	return true
}

// Convert re-encodes the artifact to targetMIME. The original artifact is
// returned untouched when the encoding is already compatible or when any
// stage fails; the server transcode remains authoritative either way.
func (p *ClientPipeline) Convert(ctx context.Context, artifact audio.Artifact, targetMIME string) audio.Artifact {
	if !NeedsConversion(artifact.MIME) {
		return artifact
	}

	if p.decoder == nil || p.encoder == nil {
		return artifact
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.decoder.Decode(ctx, artifact)
	if err != nil {
		p.logger.Debug("Client-side decode failed, keeping original",
			slog.String("mime", artifact.MIME),
			slog.String("error", err.Error()),
		)
		return artifact
	}

	converted, err := p.encoder.Encode(ctx, raw, targetMIME)
	if err != nil {
		p.logger.Debug("Client-side encode failed, keeping original",
			slog.String("mime", artifact.MIME),
			slog.String("target", targetMIME),
			slog.String("error", err.Error()),
		)
		return artifact
	}

	if err := converted.Validate(); err != nil {
		p.logger.Debug("Client-side conversion produced invalid artifact, keeping original",
			slog.String("error", err.Error()),
		)
		return artifact
	}

	// Carry the known duration over, re-encoding does not change it.
	converted = converted.WithDuration(artifact.Duration)

	p.logger.Info("Client-side conversion succeeded",
		slog.String("from", artifact.MIME),
		slog.String("to", converted.MIME),
		slog.Int("original_bytes", artifact.Size()),
		slog.Int("converted_bytes", converted.Size()),
	)

	return converted
}
