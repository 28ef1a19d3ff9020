//go:build !whisper

package asr

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

const bindingCompiled = false

func newBindingBackend(_ *logrus.Logger) (Backend, error) {
	return nil, fmt.Errorf("%w: in-process whisper.cpp needs a build with -tags whisper", ErrEngineUnavailable)
}
