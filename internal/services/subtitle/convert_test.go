package subtitle

import (
	"strings"
	"testing"
)

const sampleVTT = "WEBVTT\nKind: captions\nLanguage: en\n\n00:00:01.000 --> 00:00:02.500\nHello there\n\n00:00:03.000 --> 00:00:04.000 align:start position:0%\nSecond cue\nwith two lines\n\n00:00:05.120 --> 00:00:06.999\nThird cue"

func TestToSRTRoundTrip(t *testing.T) {
	got := ToSRT("00:00:01.000 --> 00:00:02.000\nHello")
	want := "1\n00:00:01,000 --> 00:00:02,000\nHello"
	if got != want {
		t.Fatalf("ToSRT = %q, want %q", got, want)
	}
}

func TestToSRTNumbersCuesInDocumentOrder(t *testing.T) {
	got := ToSRT(sampleVTT)

	want := strings.Join([]string{
		"1",
		"00:00:01,000 --> 00:00:02,500",
		"Hello there",
		"",
		"2",
		"00:00:03,000 --> 00:00:04,000",
		"Second cue",
		"with two lines",
		"",
		"3",
		"00:00:05,120 --> 00:00:06,999",
		"Third cue",
	}, "\n")
	if got != want {
		t.Fatalf("ToSRT mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestToSRTTimestampsUseCommaSeparator(t *testing.T) {
	got := ToSRT(sampleVTT)
	if strings.Contains(got, ".000") || strings.Contains(got, ".500") || strings.Contains(got, ".120") {
		t.Fatalf("period separator survived conversion:\n%s", got)
	}
	if !strings.Contains(got, "00:00:01,000 --> 00:00:02,500") {
		t.Fatalf("expected comma timestamps:\n%s", got)
	}
}

func TestToSRTDiscardsEmbeddedCueIndices(t *testing.T) {
	doc := "WEBVTT\n\n7\n00:00:01.000 --> 00:00:02.000\nHello\n\n9\n00:00:03.000 --> 00:00:04.000\nWorld"
	got := ToSRT(doc)
	want := "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld"
	if got != want {
		t.Fatalf("embedded indices must be resynthesized:\n got: %q\nwant: %q", got, want)
	}
}

func TestToSRTKeepsBareNumericSpokenLine(t *testing.T) {
	// A number that is cue text, not an index: nothing timing-shaped follows.
	doc := "00:00:01.000 --> 00:00:02.000\n42"
	got := ToSRT(doc)
	want := "1\n00:00:01,000 --> 00:00:02,000\n42"
	if got != want {
		t.Fatalf("numeric spoken line dropped:\n got: %q\nwant: %q", got, want)
	}
}

func TestToSRTHandlesCRLFAndBOM(t *testing.T) {
	doc := "﻿WEBVTT\r\n\r\n00:00:01.000 --> 00:00:02.000\r\nHello\r\n"
	got := ToSRT(doc)
	if !strings.HasPrefix(got, "1\n00:00:01,000 --> 00:00:02,000\nHello") {
		t.Fatalf("CRLF/BOM input mishandled: %q", got)
	}
}

func TestToPlainTextKeepsOnlySpokenLines(t *testing.T) {
	got := ToPlainText(sampleVTT)
	want := "Hello there\nSecond cue\nwith two lines\nThird cue"
	if got != want {
		t.Fatalf("ToPlainText = %q, want %q", got, want)
	}
}

func TestToPlainTextStripsNumberedCueBlocks(t *testing.T) {
	srtish := "1\n00:00:00,000 --> 00:00:00,900\nHello subtitle\n\n2\n00:00:01,000 --> 00:00:02,000\nBye"
	got := ToPlainText(srtish)
	want := "Hello subtitle\nBye"
	if got != want {
		t.Fatalf("ToPlainText = %q, want %q", got, want)
	}
}

func TestConvertDispatch(t *testing.T) {
	doc := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi"

	srt, err := Convert(doc, FormatSRT)
	if err != nil || !strings.HasPrefix(srt, "1\n") {
		t.Fatalf("srt convert: %q, %v", srt, err)
	}
	txt, err := Convert(doc, FormatText)
	if err != nil || txt != "Hi" {
		t.Fatalf("txt convert: %q, %v", txt, err)
	}
	same, err := Convert(doc, FormatVTT)
	if err != nil || same != doc {
		t.Fatalf("vtt convert must be identity")
	}
	if _, err := Convert(doc, Format("ass")); err == nil {
		t.Fatal("unknown target format accepted")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"srt", FormatSRT, false},
		{"SRT", FormatSRT, false},
		{"txt", FormatText, false},
		{"text", FormatText, false},
		{"vtt", FormatVTT, false},
		{"", FormatVTT, false},
		{"ass", "", true},
	}
	for _, tc := range tests {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
