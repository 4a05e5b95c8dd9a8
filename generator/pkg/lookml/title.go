package lookml

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title converts a snake_case identifier to a space separated title,
// e.g. "app_foo" -> "App Foo".
func Title(s string) string {
	return titleWords(strings.ReplaceAll(s, "_", " "))
}

// ChannelLabel title-cases a channel name without touching its separators,
// e.g. "nightly_esr" -> "Nightly_Esr".
func ChannelLabel(channel string) string {
	return titleWords(channel)
}

// titleWords upper-cases the first letter of every run of letters and
// lower-cases the rest. Any non-letter, digits included, ends a run, so
// "foo2bar" becomes "Foo2Bar".
func titleWords(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(s[start:]))
	}
	return b.String()
}
