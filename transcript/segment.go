// Package transcript fetches YouTube transcripts from an ordered list of
// sources and normalizes them into paragraphs carrying [[seconds]] markers.
package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ParagraphGap is the number of seconds after the last emitted marker at
// which a new paragraph starts even without sentence punctuation.
const ParagraphGap = 30.0

// Segment is one timed caption line.
type Segment struct {
	Start float64
	End   float64 // zero when the source does not report it
	Text  string
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// CleanText removes markup, decodes entities and collapses whitespace.
func CleanText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// FormatParagraphs groups segments into paragraphs. A paragraph closes when
// its latest text ends a sentence, when more than ParagraphGap seconds have
// passed since the previous marker (or there is none yet), or at the final
// segment. Each closed paragraph gets a " [[start]]" marker using the start
// of the segment that closed it.
func FormatParagraphs(segments []Segment) string {
	var (
		out       []string
		current   []string
		last      float64
		hasLast   bool
		lastIndex = len(segments) - 1
	)

	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		current = append(current, text)

		sentenceEnd := strings.HasSuffix(text, ".") ||
			strings.HasSuffix(text, "!") ||
			strings.HasSuffix(text, "?")
		gap := !hasLast || seg.Start-last > ParagraphGap

		if sentenceEnd || gap || i == lastIndex {
			out = append(out, fmt.Sprintf("%s [[%.1f]]", strings.Join(current, " "), seg.Start))
			current = current[:0]
			last = seg.Start
			hasLast = true
		}
	}

	// Only reachable when trailing segments are blank.
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}

	return strings.Join(out, " ")
}
