// Package transcript holds the JSON document printed on stdout.
package transcript

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"whisperjson/internal/asr"

	"golang.org/x/text/unicode/norm"
)

// Seconds marshals as a JSON number that always carries a fraction (0.0, 4.5).
type Seconds float64

// MarshalJSON implements json.Marshaler.
func (s Seconds) MarshalJSON() ([]byte, error) {
	return []byte(FormatSeconds(float64(s))), nil
}

// Word timings are strings on the wire.
type Word struct {
	Text  string `json:"text"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type Segment struct {
	Text  string  `json:"text"`
	Start Seconds `json:"start"`
	End   Seconds `json:"end"`
	Words []Word  `json:"words"`
}

// Result is the single object written per run. Error is only set on failure.
type Result struct {
	Error    string    `json:"error,omitempty"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Build reshapes engine output, keeping text, timings and words only.
func Build(res *asr.Result) Result {
	out := Result{Segments: []Segment{}}
	if res == nil {
		return out
	}
	out.Text = clean(res.Text())
	for _, s := range res.Segments {
		seg := Segment{
			Text:  clean(s.Text),
			Start: Seconds(seconds(s.Start)),
			End:   Seconds(seconds(s.End)),
			Words: []Word{},
		}
		for _, w := range asr.GroupWords(s.Tokens, res.Language) {
			seg.Words = append(seg.Words, Word{
				Text:  clean(w.Text),
				Start: FormatSeconds(seconds(w.Start)),
				End:   FormatSeconds(seconds(w.End)),
			})
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}

// Failure is the payload for any error: message plus empty text and segments.
func Failure(err error) Result {
	msg := "unknown error"
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = err.Error()
	}
	return Result{Error: msg, Text: "", Segments: []Segment{}}
}

// Write emits r as one JSON line. Non-ASCII and HTML characters stay unescaped.
func Write(w io.Writer, r Result) error {
	if r.Segments == nil {
		r.Segments = []Segment{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(strings.ToValidUTF8(s, "")))
}

// seconds rounds to whisper's 10 ms resolution.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// FormatSeconds renders the shortest decimal form, always with a fraction.
func FormatSeconds(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
