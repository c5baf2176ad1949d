package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Clebio2030/zaprundeploy/internal/audio"
)

type fakeDecoder struct {
	raw RawAudio
	err error
}

func (f *fakeDecoder) Decode(ctx context.Context, artifact audio.Artifact) (RawAudio, error) {
	return f.raw, f.err
}

type fakeEncoder struct {
	artifact audio.Artifact
	err      error
}

func (f *fakeEncoder) Encode(ctx context.Context, raw RawAudio, targetMIME string) (audio.Artifact, error) {
	return f.artifact, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNeedsConversion(t *testing.T) {
	tests := []struct {
		mimeType string
		expected bool
	}{
		{"audio/webm;codecs=opus", true},
		{"audio/ogg", true},
		{"audio/mp4", false},
		{"audio/mp4;codecs=mp4a", false},
		{"audio/mpeg", false},
		{"audio/mp3", false},
		{"audio/aac", false},
		{"", true},
	}

	for _, tt := range tests {
		got := NeedsConversion(tt.mimeType)
		if got != tt.expected {
			t.Errorf("NeedsConversion(%q) = %v, expected %v", tt.mimeType, got, tt.expected)
		}
	}
}

func TestClientConvertSuccess(t *testing.T) {
	original := audio.Artifact{Data: []byte("webm-bytes"), MIME: "audio/webm", Duration: 3.5}
	converted := audio.Artifact{Data: []byte("mp3-bytes"), MIME: "audio/mpeg"}

	pipeline := NewClientPipeline(
		&fakeDecoder{raw: RawAudio{Samples: []byte("pcm"), SampleRate: 48000, Channels: 1}},
		&fakeEncoder{artifact: converted},
		time.Second,
		testLogger(),
	)

	result := pipeline.Convert(context.Background(), original, "audio/mpeg")

	if result.MIME != "audio/mpeg" {
		t.Errorf("Expected converted MIME audio/mpeg, got %s", result.MIME)
	}
	if !bytes.Equal(result.Data, []byte("mp3-bytes")) {
		t.Errorf("Expected converted bytes, got %q", result.Data)
	}
	if result.Duration != 3.5 {
		t.Errorf("Expected duration carried over, got %f", result.Duration)
	}
}

func TestClientConvertSkipsCompatible(t *testing.T) {
	original := audio.Artifact{Data: []byte("aac-bytes"), MIME: "audio/mp4"}

	// Decoder and encoder would fail if invoked.
	pipeline := NewClientPipeline(
		&fakeDecoder{err: errors.New("should not be called")},
		&fakeEncoder{err: errors.New("should not be called")},
		time.Second,
		testLogger(),
	)

	result := pipeline.Convert(context.Background(), original, "audio/mpeg")

	if !bytes.Equal(result.Data, original.Data) || result.MIME != original.MIME {
		t.Error("Expected compatible artifact returned unchanged")
	}
}

func TestClientConvertFailureReturnsOriginal(t *testing.T) {
	original := audio.Artifact{Data: []byte("webm-bytes"), MIME: "audio/webm", Duration: 2}

	tests := []struct {
		name    string
		decoder Decoder
		encoder Encoder
	}{
		{
			name:    "decode failure",
			decoder: &fakeDecoder{err: errors.New("corrupt container")},
			encoder: &fakeEncoder{artifact: audio.Artifact{Data: []byte("x"), MIME: "audio/mpeg"}},
		},
		{
			name:    "encode failure",
			decoder: &fakeDecoder{raw: RawAudio{Samples: []byte("pcm")}},
			encoder: &fakeEncoder{err: errors.New("encoder unavailable")},
		},
		{
			name:    "empty output",
			decoder: &fakeDecoder{raw: RawAudio{Samples: []byte("pcm")}},
			encoder: &fakeEncoder{artifact: audio.Artifact{MIME: "audio/mpeg"}},
		},
		{
			name:    "nil stages",
			decoder: nil,
			encoder: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := NewClientPipeline(tt.decoder, tt.encoder, time.Second, testLogger())

			result := pipeline.Convert(context.Background(), original, "audio/mpeg")

			if !bytes.Equal(result.Data, original.Data) {
				t.Errorf("Expected original bytes back, got %q", result.Data)
			}
			if result.MIME != original.MIME {
				t.Errorf("Expected original MIME back, got %s", result.MIME)
			}
			if result.Duration != original.Duration {
				t.Errorf("Expected original duration back, got %f", result.Duration)
			}
		})
	}
}
