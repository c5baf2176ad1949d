package playback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Clebio2030/zaprundeploy/internal/audio"
)

// DurationProber extracts a media duration from a local path or URL.
// Satisfied by the ffprobe prober in the convert package.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// MetadataStrategy reads the remote container's duration directly, the
// equivalent of a metadata-only media load.
type MetadataStrategy struct {
	Prober  DurationProber
	Timeout time.Duration
}

// Name identifies the strategy in logs and results.
func (s *MetadataStrategy) Name() string { return "metadata-load" }

// Resolve probes the URL without downloading the full payload.
func (s *MetadataStrategy) Resolve(ctx context.Context, url string) (float64, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Prober.Duration(ctx, url)
}

// FetchDecodeStrategy downloads the artifact's bytes and decodes the local
// copy. Slower than the metadata load but immune to servers that mishandle
// range requests.
type FetchDecodeStrategy struct {
	Client *http.Client
	Prober DurationProber
}

// Name identifies the strategy in logs and results.
func (s *FetchDecodeStrategy) Name() string { return "fetch-decode" }

// Resolve fetches the artifact to a temp file and probes it.
func (s *FetchDecodeStrategy) Resolve(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build fetch request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "duration-probe-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return 0, fmt.Errorf("failed to download artifact: %w", err)
	}

	return s.Prober.Duration(ctx, tmp.Name())
}

// WAVHeaderStrategy computes the duration of .wav candidates from the
// container header alone, no probe binary needed. Non-WAV payloads fail
// fast and leave resolution to the other strategies.
type WAVHeaderStrategy struct {
	Client *http.Client
}

// Name identifies the strategy in logs and results.
func (s *WAVHeaderStrategy) Name() string { return "wav-header" }

// Resolve fetches the candidate and reads the duration from its header.
func (s *WAVHeaderStrategy) Resolve(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build fetch request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read artifact: %w", err)
	}

	return audio.WAVDuration(data)
}
