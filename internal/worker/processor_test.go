package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manimq/internal/pkg/logger"
	"manimq/internal/queue"
	"manimq/internal/renderer"
	"manimq/internal/task"
)

type fakeRenderer struct {
	err   error
	calls int
	// video is created on invocation so cleanup can be observed.
	videoDir string
}

func (f *fakeRenderer) Render(_ context.Context, _, sceneName string) (*renderer.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.videoDir, sceneName+".mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	return &renderer.Result{VideoPath: path}, nil
}

type fakeUploader struct {
	url      string
	err      error
	calls    int
	lastPath string
}

func (f *fakeUploader) Upload(_ context.Context, localPath, _ string) (string, error) {
	f.calls++
	f.lastPath = localPath
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeResults struct {
	err        error
	calls      int
	lastURL    string
	lastPrompt string
}

func (f *fakeResults) SaveVideoURL(_ context.Context, videoURL, promptID string) error {
	f.calls++
	f.lastURL = videoURL
	f.lastPrompt = promptID
	return f.err
}

type fakeNotifier struct {
	got []task.Task
}

func (f *fakeNotifier) Notify(_ context.Context, t *task.Task) {
	f.got = append(f.got, *t)
}

type fixture struct {
	proc     *Processor
	client   *queue.Client
	store    *queue.MemoryStore
	rend     *fakeRenderer
	uploader *fakeUploader
	results  *fakeResults
	notifier *fakeNotifier
	tempDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := queue.NewMemoryStore()
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	client := queue.NewClient(store, log)

	f := &fixture{
		client:   client,
		store:    store,
		rend:     &fakeRenderer{videoDir: t.TempDir()},
		uploader: &fakeUploader{url: "https://bucket.example/videos/abc_IntroScene.mp4"},
		results:  &fakeResults{},
		notifier: &fakeNotifier{},
		tempDir:  t.TempDir(),
	}
	f.proc = NewProcessor(Deps{
		Queue:    client,
		Renderer: f.rend,
		Uploader: f.uploader,
		Results:  f.results,
		Notifier: f.notifier,
		TempDir:  f.tempDir,
		Log:      log,
	})
	return f
}

// claim enqueues and dequeues one task, mirroring the worker loop.
func (f *fixture) claim(t *testing.T, req queue.EnqueueRequest) *task.Task {
	t.Helper()
	ctx := context.Background()
	_, err := f.client.Enqueue(ctx, req)
	require.NoError(t, err)
	claimed, err := f.client.DequeueNonblocking(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	return claimed
}

func (f *fixture) finalState(t *testing.T, id string) *task.Task {
	t.Helper()
	got, err := f.client.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func validCode() string {
	return "from manim import *\n\nclass IntroScene(Scene):\n    def construct(self):\n        self.play(Create(Circle()))\n"
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture(t)
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "prompt-1"})

	err := f.proc.Process(context.Background(), claimed)
	require.NoError(t, err)

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "https://bucket.example/videos/abc_IntroScene.mp4", got.Result.VideoURL)
	assert.Empty(t, got.Error)

	assert.Equal(t, 1, f.results.calls)
	assert.Equal(t, "prompt-1", f.results.lastPrompt)

	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, task.StatusCompleted, f.notifier.got[0].Status)

	// All scratch files are gone: the script and the rendered video.
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp script should be removed")
	_, statErr := os.Stat(filepath.Join(f.rend.videoDir, "IntroScene.mp4"))
	assert.True(t, os.IsNotExist(statErr), "rendered video should be removed")
}

func TestProcessDerivesSceneName(t *testing.T) {
	f := newFixture(t)
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})
	require.Empty(t, claimed.SceneName)

	require.NoError(t, f.proc.Process(context.Background(), claimed))

	_, statErr := os.Stat(filepath.Join(f.rend.videoDir, "IntroScene.mp4"))
	assert.True(t, os.IsNotExist(statErr)) // rendered under derived name, then cleaned
	assert.Equal(t, 1, f.rend.calls)
}

func TestProcessSceneResolutionFailure(t *testing.T) {
	f := newFixture(t)
	claimed := f.claim(t, queue.EnqueueRequest{Code: "import os\n", PromptID: "p"})

	err := f.proc.Process(context.Background(), claimed)
	require.Error(t, err)

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "Could not determine scene name")
	assert.Nil(t, got.Result)

	// No render is attempted on resolution failure.
	assert.Zero(t, f.rend.calls)
	assert.Zero(t, f.uploader.calls)
	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, task.StatusFailed, f.notifier.got[0].Status)
}

func TestProcessRenderFailure(t *testing.T) {
	f := newFixture(t)
	f.rend.err = &renderer.RenderError{Stderr: "Mobject has no attribute spin"}
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})

	require.Error(t, f.proc.Process(context.Background(), claimed))

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "manim failed")
	assert.Contains(t, got.Error, "Mobject has no attribute spin")
	assert.Zero(t, f.uploader.calls)
}

func TestProcessRenderTimeout(t *testing.T) {
	f := newFixture(t)
	f.rend.err = renderer.ErrTimedOut
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})

	require.Error(t, f.proc.Process(context.Background(), claimed))

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "timed out")

	// The temp script is removed on the timeout path too.
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessArtifactMissing(t *testing.T) {
	f := newFixture(t)
	f.rend.err = renderer.ErrArtifactMissing
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})

	require.Error(t, f.proc.Process(context.Background(), claimed))

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "not found after successful render")
	assert.Zero(t, f.uploader.calls, "no upload on missing artifact")
}

func TestProcessUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = errors.New("failed to upload to s3: access denied")
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})

	require.Error(t, f.proc.Process(context.Background(), claimed))

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "access denied")
	assert.Zero(t, f.results.calls)
}

func TestProcessPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.results.err = errors.New("connection refused")
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})

	require.Error(t, f.proc.Process(context.Background(), claimed))

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Equal(t, "Database error", got.Error)
	assert.Nil(t, got.Result, "artifact URL computed but never surfaced as result")

	// Upload did happen before persistence failed.
	assert.Equal(t, 1, f.uploader.calls)
}

func TestProcessStatusSequenceForwardOnly(t *testing.T) {
	f := newFixture(t)
	events, cancel := f.store.Subscribe()
	defer cancel()

	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})
	require.NoError(t, f.proc.Process(context.Background(), claimed))

	var statuses []task.Status
	timeout := time.After(time.Second)
	for len(statuses) < 2 {
		select {
		case ev := <-events:
			if ev.Type == queue.EventStatusUpdate {
				statuses = append(statuses, ev.Status)
			}
		case <-timeout:
			t.Fatal("status events missing")
		}
	}

	assert.Equal(t, []task.Status{task.StatusProcessing, task.StatusCompleted}, statuses)
}

type panickyRenderer struct{}

func (panickyRenderer) Render(context.Context, string, string) (*renderer.Result, error) {
	panic("renderer blew up")
}

func TestProcessRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	f.proc.renderer = panickyRenderer{}
	claimed := f.claim(t, queue.EnqueueRequest{Code: validCode(), PromptID: "p"})

	require.Error(t, f.proc.Process(context.Background(), claimed))

	got := f.finalState(t, claimed.ID)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "unexpected error")
	assert.Contains(t, got.Error, "renderer blew up")
	require.Len(t, f.notifier.got, 1)
}
