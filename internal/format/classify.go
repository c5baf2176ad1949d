package format

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// TargetAudioExtension is the extension all stored voice messages carry
// after server-side conversion.
const TargetAudioExtension = "m4a"

// TargetAudioMIME is the MIME type reported for converted voice messages.
const TargetAudioMIME = "audio/mp4"

// audioExtensions are the file extensions treated as audio regardless of
// the declared MIME type.
var audioExtensions = map[string]bool{
	"mp3": true, "wav": true, "ogg": true, "m4a": true,
	"aac": true, "mpeg": true, "opus": true,
}

var (
	audioNameRe    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	nonAudioNameRe = regexp.MustCompile(`[^a-zA-Z0-9.]`)
)

// IsAudio reports whether an upload should take the audio path. The check
// is deliberately permissive: MIME substring, name marker or extension.
func IsAudio(mimeType, fileName string) bool {
	if strings.Contains(mimeType, "audio") {
		return true
	}
	if strings.Contains(fileName, "audio_") {
		return true
	}
	return audioExtensions[Extension(fileName)]
}

// Extension returns the lowercased file extension without the leading dot.
func Extension(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsKnownAudioExtension reports whether ext is one of the recognized audio
// extensions.
func IsKnownAudioExtension(ext string) bool {
	return audioExtensions[strings.ToLower(ext)]
}

// ExtensionForMIME maps a recording MIME type to a container extension.
// Codec parameters after ';' are ignored.
func ExtensionForMIME(mimeType string) string {
	base := strings.TrimSpace(strings.ToLower(mimeType))
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}

	switch base {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/ogg", "application/ogg":
		return "ogg"
	case "audio/mp4", "video/mp4", "audio/aac", "audio/x-m4a":
		return "m4a"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	default:
		return ""
	}
}

// MIMEForExtension maps a container extension to its canonical MIME type.
func MIMEForExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "webm":
		return "audio/webm"
	case "ogg", "opus":
		return "audio/ogg"
	case "m4a", "mp4", "aac":
		return "audio/mp4"
	case "mp3", "mpeg":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	default:
		return ""
	}
}

// SanitizeAudioBase strips the extension and replaces every character
// outside [a-zA-Z0-9] with an underscore.
func SanitizeAudioBase(fileName string) string {
	base := fileName
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return audioNameRe.ReplaceAllString(base, "_")
}

// SanitizeFileName replaces every character outside [a-zA-Z0-9.] with an
// underscore, keeping the extension intact.
func SanitizeFileName(fileName string) string {
	return nonAudioNameRe.ReplaceAllString(fileName, "_")
}

// StoredAudioName builds the unique stored name for a converted voice
// message: millisecond timestamp, sanitized base, forced m4a extension.
func StoredAudioName(originalName string, unixMillis int64) string {
	return fmt.Sprintf("%d-%s.%s", unixMillis, SanitizeAudioBase(originalName), TargetAudioExtension)
}

// StoredFileName builds the unique stored name for a non-audio upload,
// preserving the original extension.
func StoredFileName(originalName string, unixMillis int64) string {
	return fmt.Sprintf("%d-%s", unixMillis, SanitizeFileName(originalName))
}
