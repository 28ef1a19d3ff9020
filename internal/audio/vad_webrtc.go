//go:build whisper

package audio

import (
	"encoding/binary"
	"fmt"

	vad "github.com/maxhawkins/go-webrtcvad"
)

// HasSpeech reports whether any frame of samples is voiced according to the
// webrtc VAD. frameMS must be 10, 20 or 30.
func HasSpeech(samples []float32, aggressiveness, frameMS int) (bool, error) {
	frameSamples := SampleRate * frameMS / 1000
	if !vad.ValidRateAndFrameLength(SampleRate, frameSamples) {
		return false, fmt.Errorf("invalid vad frame_ms %d", frameMS)
	}
	v, err := vad.New()
	if err != nil {
		return false, fmt.Errorf("vad init: %w", err)
	}
	if err := v.SetMode(aggressiveness); err != nil {
		return false, fmt.Errorf("vad mode: %w", err)
	}
	frame := make([]byte, frameSamples*2)
	for start := 0; start+frameSamples <= len(samples); start += frameSamples {
		for i, s := range samples[start : start+frameSamples] {
			binary.LittleEndian.PutUint16(frame[i*2:], uint16(toPCM16(s)))
		}
		voiced, err := v.Process(SampleRate, frame)
		if err != nil {
			return false, fmt.Errorf("vad: %w", err)
		}
		if voiced {
			return true, nil
		}
	}
	return false, nil
}
