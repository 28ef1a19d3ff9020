package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestResampleLinearLength(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	out := resampleLinear(in, 16000, 8000)
	if len(out) != 2 {
		t.Fatalf("downsample length got %d", len(out))
	}
	out = resampleLinear(in, 8000, 16000)
	if len(out) != 8 {
		t.Fatalf("upsample length got %d", len(out))
	}
}

func TestResampleLinearEnds(t *testing.T) {
	in := []float32{0, 10}
	out := resampleLinear(in, 1000, 2000)
	if out[0] != 0 || out[len(out)-1] != 10 {
		t.Fatalf("endpoints not preserved: %v", out)
	}
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := make([]float32, SampleRate/10)
	for i := range in {
		in[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	if err := WriteWAV(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := Load(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length %d want %d", len(out), len(in))
	}
	for i := range in {
		if d := math.Abs(float64(out[i] - in[i])); d > 1e-3 {
			t.Fatalf("sample %d off by %f", i, d)
		}
	}
}

func TestLoadDownmixesAndResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 32000, 16, 2, 1)
	frames := 3200
	data := make([]int, frames*2)
	for i := 0; i < frames; i++ {
		data[2*i] = 16384 // left at 0.5
		data[2*i+1] = 0   // right silent
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 32000},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	out, err := Load(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != frames/2 {
		t.Fatalf("expected %d samples at 16k, got %d", frames/2, len(out))
	}
	if d := math.Abs(float64(out[10]) - 0.25); d > 1e-3 {
		t.Fatalf("downmix wrong: %f", out[10])
	}
}

func TestLoadNonWAVWithoutFFmpeg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("ID3 not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), path, Options{FFmpeg: "definitely-not-ffmpeg-xyz"})
	if err == nil || !strings.Contains(err.Error(), "ffmpeg") {
		t.Fatalf("expected ffmpeg error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), Options{}); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := strings.Join(ffmpegArgs("in.m4a", "out.wav"), " ")
	for _, want := range []string{"-i in.m4a", "-ac 1", "-ar 16000", "-f wav out.wav"} {
		if !strings.Contains(args, want) {
			t.Fatalf("args %q missing %q", args, want)
		}
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(make([]float32, SampleRate*2)); got != 2 {
		t.Fatalf("duration %f", got)
	}
}
