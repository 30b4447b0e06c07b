// Package subtitle carries the subtitle interval stream and its SRT
// serialization.
package subtitle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Interval is one subtitle cue. Index starts at 1; Start and End are
// absolute seconds on the timeline.
type Interval struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Timestamp formats absolute seconds as an SRT timestamp, HH:MM:SS,mmm.
// Negative inputs clamp to zero.
func Timestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(sec*1000 + 0.5)
	s, ms := ms/1000, ms%1000
	m, s := s/60, s%60
	h, m := m/60, m%60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Write emits the intervals as sequential SRT blocks.
func Write(w io.Writer, items []Interval) error {
	for _, it := range items {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			it.Index, Timestamp(it.Start), Timestamp(it.End), strings.TrimSpace(it.Text))
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the SRT file at path, creating parent directories.
func WriteFile(path string, items []Interval) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, items); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
