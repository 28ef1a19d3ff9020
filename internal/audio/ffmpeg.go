package audio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ConvertToWAV uses ffmpeg to write a mono 16 kHz WAV of src into dir and
// returns its path.
func ConvertToWAV(ctx context.Context, ffmpeg, src, dir string) (string, error) {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	bin, err := exec.LookPath(ffmpeg)
	if err != nil {
		return "", fmt.Errorf("input is not a PCM wav and ffmpeg is unavailable: %w", err)
	}
	out := filepath.Join(dir, uuid.NewString()+".wav")
	cmd := exec.CommandContext(ctx, bin, ffmpegArgs(src, out)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return out, nil
}

func ffmpegArgs(src, dest string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dest,
	}
}
