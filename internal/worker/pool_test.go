package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manimq/internal/pkg/logger"
	"manimq/internal/queue"
	"manimq/internal/renderer"
	"manimq/internal/task"
)

// gateRenderer blocks mid-render until released, so tests can cancel
// the pool while a task is in flight.
type gateRenderer struct {
	startedOnce sync.Once
	started     chan struct{}
	release     chan struct{}
	videoDir    string
}

func newGateRenderer(videoDir string) *gateRenderer {
	return &gateRenderer{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		videoDir: videoDir,
	}
}

func (g *gateRenderer) Render(_ context.Context, _, sceneName string) (*renderer.Result, error) {
	g.startedOnce.Do(func() { close(g.started) })
	<-g.release

	path := filepath.Join(g.videoDir, sceneName+".mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	return &renderer.Result{VideoPath: path}, nil
}

func TestPoolShutdownFinishesClaimedTask(t *testing.T) {
	store := queue.NewMemoryStore()
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	client := queue.NewClient(store, log)
	rend := newGateRenderer(t.TempDir())

	pool := NewPool(Deps{
		Queue:          client,
		Renderer:       rend,
		Uploader:       &fakeUploader{url: "https://bucket.example/videos/abc_IntroScene.mp4"},
		Results:        &fakeResults{},
		Notifier:       &fakeNotifier{},
		TempDir:        t.TempDir(),
		Workers:        1,
		DequeueTimeout: 50 * time.Millisecond,
		Log:            log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	id, err := client.Enqueue(context.Background(), queue.EnqueueRequest{
		Code:     validCode(),
		PromptID: "p",
	})
	require.NoError(t, err)

	select {
	case <-rend.started:
	case <-time.After(2 * time.Second):
		t.Fatal("render never started")
	}

	// Stop the pool mid-render. The claimed task must still be driven to
	// a terminal status before the loop exits.
	cancel()
	close(rend.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}

	got, err := client.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Status.Terminal(), "claimed task left in %s", got.Status)
	assert.Equal(t, task.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
}
