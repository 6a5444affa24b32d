package renderer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"manimq/internal/pkg/logger"
)

// Config configures the manim subprocess.
type Config struct {
	// Binary is the manim executable, "manim" by default.
	Binary string
	// Quality is the quality flag, "-ql" by default (480p15 output).
	Quality string
	// MediaDir is where manim writes its media tree.
	MediaDir string
	// Timeout is the hard wall-clock budget for one render.
	Timeout time.Duration
}

// Manim invokes the manim CLI with a bounded timeout.
type Manim struct {
	cfg Config
	log *logger.Logger
}

// NewManim creates a Manim renderer.
func NewManim(cfg Config, log *logger.Logger) *Manim {
	if cfg.Binary == "" {
		cfg.Binary = "manim"
	}
	if cfg.Quality == "" {
		cfg.Quality = "-ql"
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "media"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Manim{cfg: cfg, log: log.WithComponent("renderer")}
}

// Render runs manim on scriptPath and returns the produced video path.
// A timeout yields ErrTimedOut, a nonzero exit yields a *RenderError,
// and a clean exit without the expected file yields ErrArtifactMissing.
func (m *Manim) Render(ctx context.Context, scriptPath, sceneName string) (*Result, error) {
	rctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(rctx, m.cfg.Binary, m.cfg.Quality, scriptPath, sceneName)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	m.log.Debug("invoking manim", "script", scriptPath, "scene", sceneName)
	start := time.Now()
	err := cmd.Run()
	m.log.Debug("manim finished", "duration_ms", time.Since(start).Milliseconds())

	if errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return nil, ErrTimedOut
	}
	if err != nil {
		return nil, &RenderError{Stderr: stderr.String(), Stdout: stdout.String()}
	}

	videoPath, ok := m.findArtifact(scriptPath, sceneName)
	if !ok {
		return nil, ErrArtifactMissing
	}
	return &Result{VideoPath: videoPath}, nil
}

// findArtifact checks the path manim derives from the script name, then
// the legacy "main" layout.
func (m *Manim) findArtifact(scriptPath, sceneName string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	video := sceneName + ".mp4"

	candidates := []string{
		filepath.Join(m.cfg.MediaDir, "videos", base, "480p15", video),
		filepath.Join(m.cfg.MediaDir, "videos", "main", "480p15", video),
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
