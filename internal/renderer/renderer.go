// Package renderer abstracts the external Manim invocation so the worker
// pipeline can run against a fake in tests.
package renderer

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimedOut reports that the render exceeded its wall-clock budget.
var ErrTimedOut = errors.New("manim execution timed out")

// ErrArtifactMissing reports that the renderer exited successfully but
// the expected video file is absent. It is distinct from a render
// failure: the pipeline reported success but violated its contract.
var ErrArtifactMissing = errors.New("video file not found after successful render")

// RenderError carries the diagnostic output of a failed invocation.
type RenderError struct {
	Stderr string
	Stdout string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("manim failed:\nSTDERR: %s\nSTDOUT: %s", e.Stderr, e.Stdout)
}

// Result describes a successful render.
type Result struct {
	// VideoPath is the produced artifact on local disk.
	VideoPath string
}

// Renderer turns a script file plus a scene name into a video artifact.
type Renderer interface {
	Render(ctx context.Context, scriptPath, sceneName string) (*Result, error)
}
