package digest

import (
	"strings"
	"unicode/utf8"
)

// Chunk is a contiguous slice of a transcript. Index is zero based.
type Chunk struct {
	Text  string
	Index int
	Total int
}

func (c Chunk) IsFirst() bool { return c.Index == 0 }

func (c Chunk) IsLast() bool { return c.Index == c.Total-1 }

// boundaryTokens are tried in order; the right-most match wins and earlier
// tokens win ties.
var boundaryTokens = []string{".\n", "!\n", "?\n", ". ", "! ", "? ", "\n\n", "; "}

// FindBoundary returns how many bytes of text belong in the next chunk of at
// most maxChars bytes. It prefers sentence and paragraph ends, then the last
// space, and finally cuts at maxChars, backing off to a UTF-8 rune start.
func FindBoundary(text string, maxChars int) int {
	if text == "" || maxChars <= 0 {
		return 0
	}
	if len(text) <= maxChars {
		return len(text)
	}

	window := text[:maxChars]
	best, bestLen := -1, 0
	for _, tok := range boundaryTokens {
		if pos := strings.LastIndex(window, tok); pos > best {
			best, bestLen = pos, len(tok)
		}
	}
	if best >= 0 {
		return best + bestLen
	}
	if sp := strings.LastIndexByte(window, ' '); sp >= 0 {
		return sp + 1
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		// a single rune wider than maxChars
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	return cut
}

// Split cuts text into chunks of at most maxChars bytes. Joining the chunk
// texts yields text unchanged. A non-positive maxChars yields one chunk.
func Split(text string, maxChars int) []Chunk {
	if text == "" {
		return nil
	}

	var parts []string
	if maxChars <= 0 {
		parts = []string{text}
	} else {
		for pos := 0; pos < len(text); {
			n := FindBoundary(text[pos:], maxChars)
			if n < 1 {
				n = 1
			}
			parts = append(parts, text[pos:pos+n])
			pos += n
		}
	}

	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = Chunk{Text: p, Index: i, Total: len(parts)}
	}
	return chunks
}
