package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

// sinePCM generates a 440Hz PCM-16 sine wave for the given duration
func sinePCM(sampleRate int, seconds float64) []byte {
	numSamples := int(float64(sampleRate) * seconds)
	pcm := make([]byte, numSamples*2)

	for i := 0; i < numSamples; i++ {
		ts := float64(i) / float64(sampleRate)
		sample := int16(16383.0 * math.Sin(2*math.Pi*440.0*ts))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}
	return pcm
}

func TestEncodeWAV(t *testing.T) {
	sampleRate := 8000
	pcm := sinePCM(sampleRate, 0.1)

	wavData, err := EncodeWAV(pcm, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := 44 + len(pcm)
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if string(wavData[0:4]) != "RIFF" {
		t.Error("Expected RIFF chunk ID")
	}
	if string(wavData[8:12]) != "WAVE" {
		t.Error("Expected WAVE format")
	}
}

func TestEncodeWAVRejectsInvalidInput(t *testing.T) {
	if _, err := EncodeWAV(nil, 8000); err == nil {
		t.Error("Expected error for empty samples")
	}
	if _, err := EncodeWAV([]byte{1, 2, 3}, 8000); err == nil {
		t.Error("Expected error for odd byte count")
	}
	if _, err := EncodeWAV([]byte{1, 2}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	sampleRate := 16000
	pcm := sinePCM(sampleRate, 0.05)

	wavData, err := EncodeWAV(pcm, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, gotRate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if gotRate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, gotRate)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("Expected %d PCM bytes, got %d", len(pcm), len(decoded))
	}
	for i := range pcm {
		if decoded[i] != pcm[i] {
			t.Fatalf("PCM byte %d differs after round trip", i)
		}
	}
}

func TestDecodeWAVRejectsMalformedData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"not riff", make([]byte, 44)},
		{"truncated payload", func() []byte {
			wavData, _ := EncodeWAV(sinePCM(8000, 0.1), 8000)
			return wavData[:60]
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("Expected error for malformed WAV data")
			}
		})
	}
}

func TestWAVDuration(t *testing.T) {
	sampleRate := 8000
	pcm := sinePCM(sampleRate, 0.5)

	wavData, err := EncodeWAV(pcm, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := WAVDuration(wavData)
	if err != nil {
		t.Fatalf("WAVDuration failed: %v", err)
	}

	if math.Abs(duration-0.5) > 0.001 {
		t.Errorf("Expected duration 0.5s, got %f", duration)
	}
}

func TestWAVDurationRejectsShortData(t *testing.T) {
	if _, err := WAVDuration([]byte("not a wav")); err == nil {
		t.Error("Expected error for non-WAV data")
	}
}
