// Package language maps locale-style language tags to the 2-letter
// codes the transcription engines understand. All engines share this
// mapping so a given hint means the same thing everywhere.
package language

// Auto is the sentinel hint meaning "let the engine detect the language".
const Auto = "auto"

// localeMap translates regional locale tags to whisper language codes.
var localeMap = map[string]string{
	"en-IN": "en",
	"hi-IN": "hi",
	"gu-IN": "gu",
}

// Normalize converts a caller-supplied language hint into an
// engine-native code. "auto" and the empty string return "", meaning
// auto-detect. Unknown tags pass through unchanged.
func Normalize(hint string) string {
	if hint == "" || hint == Auto {
		return ""
	}
	if code, ok := localeMap[hint]; ok {
		return code
	}
	return hint
}
