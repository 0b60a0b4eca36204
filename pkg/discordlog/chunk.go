package discordlog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxMessageLength is Discord's limit for message content, in characters.
	MaxMessageLength = 2000

	// MaxEmbedDescriptionLength is Discord's limit for an embed description.
	MaxEmbedDescriptionLength = 4096
)

// Split cuts text into ordered chunks of at most max characters.
//
// A chunk ends after the last newline that fits, else after the last
// whitespace, else at the character limit. Separators stay on the chunk they
// end. A whitespace-only piece is appended to the previous chunk when it
// fits and dropped otherwise, since Discord rejects blank messages; apart
// from dropped whitespace, concatenating the chunks yields text unchanged.
// Empty or blank text yields no chunks. A non-positive max means
// MaxMessageLength.
func Split(text string, max int) []string {
	if max <= 0 {
		max = MaxMessageLength
	}
	if text == "" {
		return nil
	}

	var chunks []string
	for text != "" {
		cut, fits := runeOffset(text, max)
		if fits {
			chunks = append(chunks, text)
			break
		}

		window := text[:cut]
		if i := strings.LastIndexByte(window, '\n'); i > 0 {
			cut = i + 1
		} else if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
			_, size := utf8.DecodeRuneInString(window[i:])
			cut = i + size
		}

		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return dropBlank(chunks, max)
}

// dropBlank folds whitespace-only chunks into their predecessor when the
// result still fits in max runes, and removes them otherwise.
func dropBlank(chunks []string, max int) []string {
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
			continue
		}
		if n := len(out); n > 0 && utf8.RuneCountInString(out[n-1])+utf8.RuneCountInString(c) <= max {
			out[n-1] += c
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// runeOffset returns the byte offset just past the first n runes of s.
// fits reports whether s has at most n runes.
func runeOffset(s string, n int) (offset int, fits bool) {
	count := 0
	for i := range s {
		if count == n {
			return i, false
		}
		count++
	}
	return len(s), true
}
