package subtitle

import (
	"bytes"
	"testing"
)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.25, "00:01:01,250"},
		{3600, "01:00:00,000"},
		{3725.042, "01:02:05,042"},
		{-2, "00:00:00,000"},
		{0.9995, "00:00:01,000"}, // millisecond rounding carries
	}
	for _, tt := range tests {
		if got := Timestamp(tt.sec); got != tt.want {
			t.Errorf("Timestamp(%f) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Interval{
		{Index: 1, Start: 0, End: 1.5, Text: "こんにちは！"},
		{Index: 2, Start: 1.55, End: 3.0, Text: "  trimmed  "},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nこんにちは！\n\n" +
		"2\n00:00:01,550 --> 00:00:03,000\ntrimmed\n\n"
	if buf.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", buf.String(), want)
	}
}
