package analyzer

import (
	"errors"
	"testing"
)

func TestDecodeLooseDirectJSON(t *testing.T) {
	var holistic HolisticAnalysis
	raw := `{"summary":"a cooking demo","topics":["cooking","food"],"sentiment":"positive"}`
	if err := decodeLoose(raw, &holistic); err != nil {
		t.Fatalf("decodeLoose failed: %v", err)
	}
	if holistic.Summary != "a cooking demo" || holistic.Sentiment != "positive" {
		t.Errorf("unexpected result: %+v", holistic)
	}
}

func TestDecodeLooseExtractsEmbeddedObject(t *testing.T) {
	raw := "Sure! Here is the analysis:\n```json\n" +
		`{"summary":"a {quoted} summary","keyPoints":["one","two"]}` +
		"\n```\nLet me know if you need more."
	var holistic HolisticAnalysis
	if err := decodeLoose(raw, &holistic); err != nil {
		t.Fatalf("decodeLoose failed: %v", err)
	}
	if holistic.Summary != "a {quoted} summary" {
		t.Errorf("summary = %q", holistic.Summary)
	}
	if len(holistic.KeyPoints) != 2 {
		t.Errorf("keyPoints = %v", holistic.KeyPoints)
	}
}

func TestDecodeLooseHandlesBracesInsideStrings(t *testing.T) {
	raw := `noise {"summary":"open { and escaped \" and close }","topics":[]} trailing`
	var holistic HolisticAnalysis
	if err := decodeLoose(raw, &holistic); err != nil {
		t.Fatalf("decodeLoose failed: %v", err)
	}
	if holistic.Summary != `open { and escaped " and close }` {
		t.Errorf("summary = %q", holistic.Summary)
	}
}

func TestDecodeLooseMalformed(t *testing.T) {
	var holistic HolisticAnalysis
	err := decodeLoose("{summary: bad json", &holistic)
	if err == nil {
		t.Fatal("expected error")
	}
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
	}
}

func TestDecodeLooseNoObjectAtAll(t *testing.T) {
	var holistic HolisticAnalysis
	err := decodeLoose("I could not analyze these frames.", &holistic)
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "[00:00]"},
		{5.4, "[00:05]"},
		{65, "[01:05]"},
		{600.9, "[10:00]"},
		{-3, "[00:00]"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestDedupeTopics(t *testing.T) {
	got := dedupeTopics([]string{"cooking", "food", "cooking", "Food", "food"})
	want := []string{"cooking", "food", "Food"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
