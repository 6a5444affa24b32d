package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"manimq/internal/pkg/logger"
	"manimq/internal/queue"
	"manimq/internal/renderer"
	"manimq/internal/scene"
	"manimq/internal/task"
)

// maxErrorLen bounds the diagnostic text persisted on a failed task.
const maxErrorLen = 2000

// Processor drives one claimed task through the render state machine:
// processing -> render -> upload -> persist -> completed, or failed at
// the first error. Every exit path reaches a terminal status, fires a
// notification and removes the task's scratch files.
type Processor struct {
	queue    *queue.Client
	renderer renderer.Renderer
	uploader Uploader
	results  ResultStore
	notifier CompletionNotifier
	tempDir  string
	log      *logger.Logger
}

// NewProcessor creates a Processor from deps.
func NewProcessor(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Processor{
		queue:    d.Queue,
		renderer: d.Renderer,
		uploader: d.Uploader,
		results:  d.Results,
		notifier: d.Notifier,
		tempDir:  d.TempDir,
		log:      log.WithComponent("processor"),
	}
}

// Process runs the pipeline for one claimed task. It returns the failure
// cause for logging; the task's own state is always settled internally,
// so the worker loop never acts on the error beyond logging it.
func (p *Processor) Process(ctx context.Context, t *task.Task) (err error) {
	log := p.log.FromContext(ctx).WithTaskID(t.ID)

	var scratch []string
	defer func() {
		for _, path := range scratch {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("scratch file cleanup failed", "path", path, "error", rmErr.Error())
			}
		}
	}()

	// A panic anywhere in the pipeline is recorded like any other
	// pipeline failure; the worker loop must keep polling.
	defer func() {
		if rec := recover(); rec != nil {
			err = p.fail(ctx, t, fmt.Sprintf("unexpected error: %v", rec))
		}
	}()

	if ok, uerr := p.queue.UpdateStatus(ctx, t.ID, task.StatusProcessing, nil, ""); uerr != nil || !ok {
		if uerr != nil {
			return fmt.Errorf("mark processing: %w", uerr)
		}
		return fmt.Errorf("mark processing: task %s record missing", t.ID)
	}

	sceneName := t.SceneName
	if sceneName == "" {
		sceneName = scene.ExtractName(t.Code)
		if sceneName == "" {
			return p.fail(ctx, t, "Could not determine scene name. Ensure code defines a Scene class.")
		}
		log.Debug("scene name derived", "scene", sceneName)
	}

	scriptPath, werr := p.writeScript(t.Code)
	if werr != nil {
		return p.fail(ctx, t, "failed to create temporary file: "+werr.Error())
	}
	scratch = append(scratch, scriptPath)

	res, rerr := p.renderer.Render(ctx, scriptPath, sceneName)
	if rerr != nil {
		switch {
		case errors.Is(rerr, renderer.ErrTimedOut):
			return p.fail(ctx, t, renderer.ErrTimedOut.Error())
		case errors.Is(rerr, renderer.ErrArtifactMissing):
			return p.fail(ctx, t, renderer.ErrArtifactMissing.Error())
		default:
			return p.fail(ctx, t, rerr.Error())
		}
	}
	scratch = append(scratch, res.VideoPath)
	log.Debug("render finished", "video", res.VideoPath)

	videoURL, uperr := p.uploader.Upload(ctx, res.VideoPath, "video/mp4")
	if uperr != nil {
		return p.fail(ctx, t, uperr.Error())
	}
	log.Debug("artifact uploaded", "url", videoURL)

	if dberr := p.results.SaveVideoURL(ctx, videoURL, t.PromptID); dberr != nil {
		log.Error("result persistence failed", "error", dberr.Error())
		// The artifact exists, but the task is not complete until the
		// reference is durably recorded downstream.
		return p.fail(ctx, t, "Database error")
	}

	result := &task.RenderResult{VideoURL: videoURL}
	if ok, uerr := p.queue.UpdateStatus(ctx, t.ID, task.StatusCompleted, result, ""); uerr != nil || !ok {
		log.Error("final status update failed", "ok", ok)
	}

	t.Status = task.StatusCompleted
	t.Result = result
	p.notifier.Notify(ctx, t)
	return nil
}

// fail records the terminal failure and notifies, then returns the cause
// for the worker loop's log line.
func (p *Processor) fail(ctx context.Context, t *task.Task, msg string) error {
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}

	if _, err := p.queue.UpdateStatus(ctx, t.ID, task.StatusFailed, nil, msg); err != nil {
		p.log.FromContext(ctx).WithTaskID(t.ID).Error("failed-status update error", "error", err.Error())
	}

	t.Status = task.StatusFailed
	t.Error = msg
	p.notifier.Notify(ctx, t)

	return fmt.Errorf("%s", msg)
}

// writeScript materializes the task's code as a scratch .py file the
// renderer can consume.
func (p *Processor) writeScript(code string) (string, error) {
	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", err
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ".py"
	path := filepath.Join(p.tempDir, name)
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
