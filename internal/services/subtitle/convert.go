package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Format names a subtitle container format.
type Format string

const (
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
	FormatText Format = "txt"
)

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srt":
		return FormatSRT, nil
	case "txt", "text":
		return FormatText, nil
	case "vtt", "webvtt", "":
		return FormatVTT, nil
	}
	return "", fmt.Errorf("unsupported subtitle format: %q", s)
}

var (
	timingLine  = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})[.,](\d{3})\s+-->\s+(\d{2}:\d{2}:\d{2})[.,](\d{3})`)
	numericLine = regexp.MustCompile(`^\d+$`)
)

// Convert transforms a WebVTT document into the target format. Converting to
// VTT returns the document unchanged.
func Convert(doc string, to Format) (string, error) {
	switch to {
	case FormatSRT:
		return ToSRT(doc), nil
	case FormatText:
		return ToPlainText(doc), nil
	case FormatVTT:
		return doc, nil
	}
	return "", fmt.Errorf("unsupported subtitle format: %q", to)
}

// ToSRT rewrites a WebVTT document as SRT: the header block is dropped, each
// timing line gains a synthesized 1-based cue index in occurrence order, and
// timestamp decimal separators switch from period to comma. Cue indices
// embedded in the source are discarded, never reused.
func ToSRT(doc string) string {
	lines := stripHeader(splitLines(doc))
	out := make([]string, 0, len(lines)+8)
	cue := 0
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if isSourceCueIndex(lines, i, trimmed) {
			continue
		}
		if m := timingLine.FindStringSubmatch(trimmed); m != nil {
			cue++
			out = append(out, strconv.Itoa(cue))
			out = append(out, m[1]+","+m[2]+" --> "+m[3]+","+m[4])
			continue
		}
		out = append(out, lines[i])
	}
	return strings.Join(out, "\n")
}

// ToPlainText strips the header, cue index lines and timing blocks, keeping
// only spoken-text lines.
func ToPlainText(doc string) string {
	lines := stripHeader(splitLines(doc))
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if isSourceCueIndex(lines, i, trimmed) {
			continue
		}
		if timingLine.MatchString(trimmed) {
			continue
		}
		out = append(out, lines[i])
	}
	return strings.Join(out, "\n")
}

// isSourceCueIndex reports whether line i is a bare sequence number directly
// preceding a timing line.
func isSourceCueIndex(lines []string, i int, trimmed string) bool {
	if !numericLine.MatchString(trimmed) {
		return false
	}
	return i+1 < len(lines) && timingLine.MatchString(strings.TrimSpace(lines[i+1]))
}

func splitLines(doc string) []string {
	doc = strings.TrimPrefix(doc, "﻿")
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	return strings.Split(doc, "\n")
}

// stripHeader removes the WEBVTT signature line together with its metadata
// lines (everything up to the first blank line) and any blank lines that
// follow. Documents without a header pass through untouched.
func stripHeader(lines []string) []string {
	if len(lines) == 0 || !strings.HasPrefix(strings.TrimSpace(lines[0]), "WEBVTT") {
		return lines
	}
	i := 1
	for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
		i++
	}
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return lines[i:]
}
