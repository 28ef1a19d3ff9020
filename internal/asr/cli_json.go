package asr

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// whisper-cli -ojf output, reduced to what we read. Offsets are milliseconds.
type cliOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []cliSegment `json:"transcription"`
}

type cliSegment struct {
	Offsets cliOffsets `json:"offsets"`
	Text    string     `json:"text"`
	Tokens  []cliToken `json:"tokens"`
}

type cliToken struct {
	Text    string     `json:"text"`
	Offsets cliOffsets `json:"offsets"`
	ID      int        `json:"id"`
}

type cliOffsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func parseFullJSON(data []byte) (*Result, error) {
	var out cliOutput
	if err := json.Unmarshal(escapeRawBytes(data), &out); err != nil {
		return nil, fmt.Errorf("parse whisper-cli json: %w", err)
	}
	res := &Result{
		Language: out.Result.Language,
		Segments: make([]Segment, 0, len(out.Transcription)),
	}
	for _, s := range out.Transcription {
		seg := Segment{
			Text:  restoreRawBytes(s.Text),
			Start: msToDuration(s.Offsets.From),
			End:   msToDuration(s.Offsets.To),
		}
		for _, t := range s.Tokens {
			text := restoreRawBytes(t.Text)
			seg.Tokens = append(seg.Tokens, Token{
				Text:    text,
				Start:   msToDuration(t.Offsets.From),
				End:     msToDuration(t.Offsets.To),
				Special: isSpecialToken(text),
			})
		}
		res.Segments = append(res.Segments, seg)
	}
	return res, nil
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// isSpecialToken matches whisper.cpp's rendering of control tokens:
// [_BEG_], [_TT_150], [_SOT_] and the <|...|> spelling.
func isSpecialToken(text string) bool {
	t := strings.TrimSpace(text)
	return (strings.HasPrefix(t, "[_") && strings.HasSuffix(t, "]")) ||
		(strings.HasPrefix(t, "<|") && strings.HasSuffix(t, "|>"))
}

// whisper-cli writes token text byte for byte, so a character split across
// tokens shows up as invalid UTF-8 that encoding/json would turn into U+FFFD.
// Stray bytes are parked in the last private-use block before decoding and
// put back afterwards.
const rawByteBase = 0x10FF00

func escapeRawBytes(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	out := make([]byte, 0, len(data)+16)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, rune(rawByteBase+int(data[0])))
		} else {
			out = append(out, data[:size]...)
		}
		data = data[size:]
	}
	return out
}

func restoreRawBytes(s string) string {
	if !strings.ContainsFunc(s, isRawByteRune) {
		return s
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if isRawByteRune(r) {
			out = append(out, byte(r-rawByteBase))
			continue
		}
		out = utf8.AppendRune(out, r)
	}
	return string(out)
}

func isRawByteRune(r rune) bool {
	return r >= rawByteBase && r <= rawByteBase+0xFF
}
