// Package audio turns an input file into the 16 kHz mono float32 samples
// whisper.cpp consumes.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate is the rate whisper models are trained on.
const SampleRate = 16000

// Options controls decoding.
type Options struct {
	FFmpeg  string // ffmpeg binary for non-WAV input
	TempDir string
}

var errNotPCM = errors.New("not a PCM wav file")

// Load decodes path into mono samples at SampleRate. WAV files are decoded
// directly; anything else goes through ffmpeg first.
func Load(ctx context.Context, path string, opts Options) ([]float32, error) {
	samples, err := readWAV(path)
	if err == nil {
		return samples, nil
	}
	if !errors.Is(err, errNotPCM) {
		return nil, err
	}
	dir, err := os.MkdirTemp(opts.TempDir, "whisperjson-")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	converted, err := ConvertToWAV(ctx, opts.FFmpeg, path, dir)
	if err != nil {
		return nil, err
	}
	return readWAV(converted)
}

// readWAV returns errNotPCM when path is not an integer PCM wav.
func readWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errNotPCM
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: format %d", errNotPCM, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("decode wav: missing format")
	}
	mono := downmix(buf, int(dec.BitDepth))
	return resampleLinear(mono, buf.Format.SampleRate, SampleRate), nil
}

// downmix averages interleaved channels and scales integer PCM into [-1, 1].
func downmix(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		// 8-bit wav is unsigned
		offset = 128
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Data[i*ch+c]-offset) / scale
		}
		out[i] = sum / float32(ch)
	}
	return out
}

// WriteWAV encodes mono samples as 16-bit PCM at SampleRate.
func WriteWAV(path string, samples []float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := wav.NewEncoder(f, SampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(toPCM16(s))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return f.Close()
}

func toPCM16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * 32767)
}

// Duration returns the length of samples at SampleRate in seconds.
func Duration(samples []float32) float64 {
	return float64(len(samples)) / SampleRate
}

func resampleLinear(in []float32, srcSR, dstSR int) []float32 {
	if srcSR == dstSR || len(in) == 0 || srcSR <= 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(in))*ratio + 0.9999)
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}
