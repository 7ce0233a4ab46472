package recognize

import (
	"regexp"
	"strings"
)

var (
	controlWhitespace = regexp.MustCompile(`[\r\t]`)
	blankLines        = regexp.MustCompile(`\n{2,}`)
	repeatedSpaces    = regexp.MustCompile(` {2,}`)
	invisibleChars    = strings.NewReplacer("\u200b", "", "\u00a0", "")
)

// Normalize collapses whitespace runs and blank lines and drops zero-width
// and non-breaking spaces. Everything else, angle brackets included, is kept as typed.
func Normalize(text string) string {
	text = controlWhitespace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n")
	text = repeatedSpaces.ReplaceAllString(text, " ")
	text = invisibleChars.Replace(text)
	return strings.TrimSpace(text)
}

// SanitizeImageMIME restricts the MIME type to png, jpeg or webp; anything else is jpeg
func SanitizeImageMIME(mime string) string {
	switch value := strings.ToLower(strings.TrimSpace(mime)); value {
	case "image/png", "image/jpeg", "image/webp":
		return value
	case "image/jpg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}
