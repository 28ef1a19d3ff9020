//go:build whisper

package doctor

import (
	"fmt"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

func checkModelLoads(path string) Result {
	if path == "" {
		return Result{Name: "model load", Pass: true, Detail: "skipped, no model yet"}
	}
	model, err := whisper.New(path)
	if err != nil {
		return Result{Name: "model load", Pass: false, Detail: fmt.Sprintf("load failed: %v (re-download with: whisperjson models download)", err)}
	}
	defer func() {
		_ = model.Close()
	}()
	return Result{Name: "model load", Pass: true, Detail: "ok"}
}
