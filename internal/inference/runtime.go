// Package inference wraps the ONNX Runtime sessions for person detection
// and face embedding. Both models are black boxes behind fixed tensor
// contracts; inference failures fail open (empty detections, zero
// embeddings) so the worker never stalls on a bad batch.
package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// InitRuntime loads the ONNX Runtime shared library and initializes the
// environment. Safe to call from every session constructor; only the
// first call does work. Failure here is a startup-time configuration
// error and is fatal to the worker.
func InitRuntime(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("initialize onnxruntime: %w", err)
		}
	})
	return initErr
}
