package transcript

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	vttTimingRe = regexp.MustCompile(`^(\d+:[\d:.]+)\s*-->\s*(\d+:[\d:.]+)`)
	srtTimingRe = regexp.MustCompile(`^(\d+:[\d:,]+)\s*-->\s*(\d+:[\d:,]+)`)
	blockSepRe  = regexp.MustCompile(`\n\s*\n`)
)

// TimestampToSeconds parses HH:MM:SS.mmm, MM:SS.mmm or plain seconds.
// Unparseable input yields 0.
func TimestampToSeconds(ts string) float64 {
	ts = strings.TrimSpace(ts)
	parts := strings.Split(ts, ":")

	var h, m, s string
	switch len(parts) {
	case 3:
		h, m, s = parts[0], parts[1], parts[2]
	case 2:
		m, s = parts[0], parts[1]
	case 1:
		s = parts[0]
	default:
		return 0
	}

	total := 0.0
	for _, p := range []struct {
		v    string
		mult float64
	}{{h, 3600}, {m, 60}, {s, 1}} {
		if p.v == "" {
			continue
		}
		f, err := strconv.ParseFloat(p.v, 64)
		if err != nil {
			return 0
		}
		total += f * p.mult
	}
	return total
}

// ParseVTT reads WebVTT cues. Header and NOTE lines are skipped and cue text
// is cleaned of markup.
func ParseVTT(content string) []Segment {
	lines := strings.Split(strings.TrimSpace(normalizeNewlines(content)), "\n")

	var segments []Segment
	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "WEBVTT") || strings.HasPrefix(line, "NOTE") {
			i++
			continue
		}
		if !strings.Contains(line, "-->") {
			i++
			continue
		}
		m := vttTimingRe.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}

		start := TimestampToSeconds(m[1])
		end := TimestampToSeconds(m[2])

		var text []string
		i++
		for i < len(lines) {
			l := strings.TrimSpace(lines[i])
			if l == "" || strings.Contains(l, "-->") {
				break
			}
			if cleaned := CleanText(l); cleaned != "" {
				text = append(text, cleaned)
			}
			i++
		}

		if len(text) > 0 {
			segments = append(segments, Segment{Start: start, End: end, Text: strings.Join(text, " ")})
		}
	}
	return segments
}

// ParseSRT reads SubRip blocks: a sequence line, a timing line with comma
// decimals, then text lines.
func ParseSRT(content string) []Segment {
	var segments []Segment
	for _, block := range blockSepRe.Split(strings.TrimSpace(normalizeNewlines(content)), -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}
		m := srtTimingRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
		if m == nil {
			continue
		}
		start := TimestampToSeconds(strings.ReplaceAll(m[1], ",", "."))
		end := TimestampToSeconds(strings.ReplaceAll(m[2], ",", "."))

		text := CleanText(strings.Join(lines[2:], " "))
		if text != "" {
			segments = append(segments, Segment{Start: start, End: end, Text: text})
		}
	}
	return segments
}

// ParseSubtitles dispatches on format, falling back to sniffing the WEBVTT
// header.
func ParseSubtitles(content, format string) []Segment {
	if format == "vtt" || strings.Contains(content, "WEBVTT") {
		return ParseVTT(content)
	}
	return ParseSRT(content)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
