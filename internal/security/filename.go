// Package security provides helpers for handling untrusted strings that end
// up in filesystem paths.
package security

import "strings"

// maxFilenameLen bounds generated names so joined paths stay well under
// common filesystem limits.
const maxFilenameLen = 128

// SanitizeFilename converts an arbitrary string, such as a recording session
// name, into a safe path component. Runs of characters outside ASCII letters,
// digits, dot, underscore and dash collapse to a single underscore, the result
// is capped at 128 bytes, and leading or trailing dots and underscores are
// trimmed. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
