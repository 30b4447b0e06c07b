// Package voice talks to a VOICEVOX engine over HTTP and renders script
// lines to WAV files.
package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// SynthesisError reports a line that could not be rendered, with enough
// context to find it in the script.
type SynthesisError struct {
	Voice int
	Text  string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for voice %d, text %q: %v", e.Voice, e.Text, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Client is a VOICEVOX engine client. The engine exposes a two-step
// API: audio_query builds synthesis parameters from text, synthesis
// renders them to WAV.
type Client struct {
	baseURL string
	retries int
	backoff time.Duration
	http    *http.Client
}

// New builds a client for the engine at baseURL, e.g.
// "http://127.0.0.1:50021".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		retries: 3,
		backoff: time.Second,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Ready probes the engine's /version endpoint.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("VOICEVOX not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("VOICEVOX at %s answered %s to /version", c.baseURL, resp.Status)
	}
	return nil
}

// Synthesize renders text with the given speaker into outPath and
// returns the real duration, in seconds, of the produced WAV.
// Transient failures are retried with a linear backoff.
func (c *Client) Synthesize(ctx context.Context, text string, speaker int, outPath string) (float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, &SynthesisError{Voice: speaker, Text: text, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		dur, err := c.synthesizeOnce(ctx, text, speaker, outPath)
		if err == nil {
			return dur, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return 0, &SynthesisError{Voice: speaker, Text: text, Err: lastErr}
}

func (c *Client) synthesizeOnce(ctx context.Context, text string, speaker int, outPath string) (float64, error) {
	query, err := c.audioQuery(ctx, text, speaker)
	if err != nil {
		return 0, err
	}
	wav, err := c.synthesis(ctx, speaker, query)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(outPath, wav, 0644); err != nil {
		return 0, err
	}
	return wavDuration(wav)
}

func (c *Client) audioQuery(ctx context.Context, text string, speaker int) ([]byte, error) {
	u := fmt.Sprintf("%s/audio_query?%s", c.baseURL, url.Values{
		"text":    {text},
		"speaker": {strconv.Itoa(speaker)},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, "audio_query")
}

func (c *Client) synthesis(ctx context.Context, speaker int, query []byte) ([]byte, error) {
	u := fmt.Sprintf("%s/synthesis?%s", c.baseURL, url.Values{
		"speaker": {strconv.Itoa(speaker)},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "synthesis")
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s: %s", op, resp.Status, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// wavDuration reads the RIFF header and returns the audio duration of a
// PCM WAV: data chunk length divided by the fmt chunk's byte rate.
func wavDuration(wav []byte) (float64, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a RIFF WAVE file")
	}
	var byteRate uint32
	var dataLen uint32
	haveFmt, haveData := false, false
	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := binary.LittleEndian.Uint32(wav[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+16 > len(wav) {
				return 0, fmt.Errorf("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(wav[body+8 : body+12])
			haveFmt = true
		case "data":
			dataLen = size
			haveData = true
		}
		// chunks are word-aligned
		off = body + int(size)
		if size%2 == 1 {
			off++
		}
	}
	if !haveFmt || !haveData {
		return 0, fmt.Errorf("missing fmt or data chunk")
	}
	if byteRate == 0 {
		return 0, fmt.Errorf("zero byte rate")
	}
	return float64(dataLen) / float64(byteRate), nil
}
