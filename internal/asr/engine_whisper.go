//go:build whisper

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

const bindingCompiled = true

// bindingBackend runs whisper.cpp in-process through the cgo bindings.
type bindingBackend struct {
	logger *logrus.Logger
}

func newBindingBackend(logger *logrus.Logger) (Backend, error) {
	return &bindingBackend{logger: logger}, nil
}

func (b *bindingBackend) Name() string { return "whisper.cpp" }

func (b *bindingBackend) Load(_ context.Context, opts LoadOptions) (Engine, error) {
	model, err := whisper.New(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &bindingEngine{model: model, opts: opts, logger: b.logger}, nil
}

type bindingEngine struct {
	model  whisper.Model
	opts   LoadOptions
	logger *logrus.Logger
}

func (e *bindingEngine) Transcribe(ctx context.Context, req Request) (*Result, error) {
	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %q: %w", lang, err)
	}
	threads := e.opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))
	wctx.SetTranslate(false)
	wctx.SetTokenTimestamps(true)
	wctx.SetSplitOnWord(true)

	// returning false from the encoder callback aborts the run
	keepGoing := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(req.Samples, keepGoing, nil, nil); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("process: %w", err)
	}

	res := &Result{Language: wctx.DetectedLanguage()}
	if res.Language == "" {
		res.Language = wctx.Language()
	}
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("next segment: %w", err)
		}
		out := Segment{Text: seg.Text, Start: seg.Start, End: seg.End}
		for _, tok := range seg.Tokens {
			out.Tokens = append(out.Tokens, Token{
				Text:    tok.Text,
				Start:   tok.Start,
				End:     tok.End,
				Special: !wctx.IsText(tok),
			})
		}
		res.Segments = append(res.Segments, out)
	}
	e.logger.Debugf("whisper.cpp: %d segments, language %s", len(res.Segments), res.Language)
	return res, nil
}

func (e *bindingEngine) Close() error {
	return e.model.Close()
}
