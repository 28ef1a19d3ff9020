package device

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// Device is the compute target handed to the engine.
type Device string

const (
	CPU   Device = "cpu"
	CUDA  Device = "cuda"
	Metal Device = "metal"
)

// IsGPU reports whether d offloads to a GPU.
func (d Device) IsGPU() bool { return d == CUDA || d == Metal }

// Prober reports an available GPU, or CPU when none.
type Prober func(ctx context.Context) Device

// Select forces CPU when cpuOnly is set, otherwise takes what probe finds.
func Select(ctx context.Context, cpuOnly bool, probe Prober) Device {
	if cpuOnly || probe == nil {
		return CPU
	}
	if d := probe(ctx); d.IsGPU() {
		return d
	}
	return CPU
}

// MetalHost reports whether whisper.cpp builds for this platform offload to Metal.
func MetalHost() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}

// Detect is the default Prober.
func Detect(ctx context.Context) Device {
	if MetalHost() {
		return Metal
	}
	smi, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return CPU
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, smi, "-L").Output()
	if err != nil || len(out) == 0 {
		return CPU
	}
	return CUDA
}

// Apply hides CUDA devices from this process (and its children) when running on CPU.
func Apply(d Device) error {
	if d != CPU {
		return nil
	}
	return os.Setenv("CUDA_VISIBLE_DEVICES", "")
}
