package format

// FallbackMIME is the sentinel appended to every preference list. Selecting
// it means the capture backend picks its own default encoding.
const FallbackMIME = ""

// restrictiveFormats is the preference ladder for platforms that only play
// AAC/MP4 family encodings reliably.
var restrictiveFormats = []string{
	"audio/mp4",
	"audio/mp4;codecs=mp4a",
	"audio/aac",
	"audio/mpeg",
	"audio/mp3",
	"audio/wav",
	"audio/ogg;codecs=opus",
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg",
}

// generalFormats is the preference ladder for platforms with broad codec
// support, favoring Opus containers.
var generalFormats = []string{
	"audio/webm;codecs=opus",
	"audio/mp4;codecs=mp4a",
	"audio/ogg;codecs=opus",
	"audio/webm",
	"audio/ogg",
	"audio/mp3",
	"audio/mpeg",
}

// PlatformHints describes the recording platform as far as it affects
// format choice.
type PlatformHints struct {
	Restrictive bool   // platform only plays AAC/MP4 family reliably
	UserAgent   string // informational, carried through to logs
}

// CapabilityProbe reports whether the capture backend supports a MIME type.
// The probe for the empty sentinel must always return true.
type CapabilityProbe func(mimeType string) bool

// PreferenceList is an ordered list of candidate recording MIME types,
// always terminated by the empty sentinel.
type PreferenceList []string

// Negotiate returns the platform-appropriate preference list. The result is
// deterministic for a given set of hints and always ends with FallbackMIME.
func Negotiate(hints PlatformHints) PreferenceList {
	base := generalFormats
	if hints.Restrictive {
		base = restrictiveFormats
	}

	list := make(PreferenceList, 0, len(base)+1)
	list = append(list, base...)
	list = append(list, FallbackMIME)
	return list
}

// First returns the first entry the probe reports as supported. The sentinel
// is returned when nothing else is, so the result is always usable.
func (p PreferenceList) First(probe CapabilityProbe) string {
	for _, mimeType := range p {
		if mimeType == FallbackMIME {
			return FallbackMIME
		}
		if probe != nil && probe(mimeType) {
			return mimeType
		}
	}
	return FallbackMIME
}

// Supported returns every non-sentinel entry the probe accepts, preserving
// preference order.
func (p PreferenceList) Supported(probe CapabilityProbe) []string {
	var supported []string
	for _, mimeType := range p {
		if mimeType == FallbackMIME {
			continue
		}
		if probe != nil && probe(mimeType) {
			supported = append(supported, mimeType)
		}
	}
	return supported
}
