package playback

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Hints describes the playback platform as far as it affects URL retries.
type Hints struct {
	// Restrictive platforms get the aggressive-caching and prefix-quirk
	// variants plus cache-busting query parameters.
	Restrictive bool
}

// playableExtensions matches stored paths that already carry an extension
// the platform can be expected to recognize.
var playableExtensions = regexp.MustCompile(`(?i)\.(mp3|wav|ogg|m4a|aac)$`)

// CandidateResolver builds the ordered URL retry list for stored artifacts.
type CandidateResolver struct {
	BaseURL   string
	Prefix    string // storage prefix, normally "public"
	AltPrefix string // alternate prefix some deployments use, "arquivo"

	// Now is injectable for deterministic cache-busting in tests.
	Now func() time.Time
}

// NewCandidateResolver creates a resolver for the given base URL and
// storage prefixes.
func NewCandidateResolver(baseURL, prefix, altPrefix string) *CandidateResolver {
	return &CandidateResolver{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Prefix:    strings.Trim(prefix, "/"),
		AltPrefix: strings.Trim(altPrefix, "/"),
		Now:       time.Now,
	}
}

// Candidates returns the ordered, deduplicated retry list for a stored
// path. The fully-qualified primary URL always comes first; the order of
// the rest is the order PlaybackSession walks on failure.
func (r *CandidateResolver) Candidates(storedPath string, hints Hints) []string {
	if storedPath == "" {
		return nil
	}

	candidates := []string{r.fullURL(storedPath, hints)}

	if hints.Restrictive {
		prefixSegment := r.Prefix + "/"
		if strings.Contains(storedPath, prefixSegment) {
			withoutPrefix := strings.Replace(storedPath, prefixSegment, "", 1)
			candidates = append(candidates, r.fullURL(withoutPrefix, hints))
		} else {
			candidates = append(candidates, r.fullURL(r.AltPrefix+"/"+storedPath, hints))
		}

		if strings.HasPrefix(storedPath, "http") {
			candidates = append(candidates, fmt.Sprintf("%s?t=%d", storedPath, r.now().UnixMilli()))
			if strings.HasPrefix(storedPath, "https:") {
				candidates = append(candidates, strings.Replace(storedPath, "https:", "http:", 1))
			} else if strings.HasPrefix(storedPath, "http:") {
				candidates = append(candidates, strings.Replace(storedPath, "http:", "https:", 1))
			}
		}
	}

	if !strings.Contains(storedPath, r.Prefix+"/") && !strings.Contains(storedPath, r.AltPrefix+"/") {
		candidates = append(candidates, r.fullURL(r.AltPrefix+"/"+storedPath, hints))
	}

	if !playableExtensions.MatchString(storedPath) {
		candidates = append(candidates, r.fullURL(storedPath+".mp3", hints))
		candidates = append(candidates, r.fullURL(storedPath+".wav", hints))
	}

	return dedup(candidates)
}

// fullURL resolves a stored path to a fully-qualified URL. Absolute URLs
// pass through untouched; relative paths get the base URL and the storage
// prefix. Restrictive platforms get a cache-busting timestamp.
func (r *CandidateResolver) fullURL(path string, hints Hints) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	clean := strings.TrimPrefix(path, "/")
	if !strings.HasPrefix(clean, r.Prefix+"/") && !strings.HasPrefix(clean, r.AltPrefix+"/") {
		clean = r.Prefix + "/" + clean
	}

	full := r.BaseURL + "/" + clean
	if hints.Restrictive {
		full = fmt.Sprintf("%s?t=%d", full, r.now().UnixMilli())
	}
	return full
}

func (r *CandidateResolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func dedup(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	result := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true
		result = append(result, candidate)
	}
	return result
}
