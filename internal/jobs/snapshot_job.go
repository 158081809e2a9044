package job

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maheshrc27/walk-gallery/internal/session"
)

type renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

type SnapshotJob struct {
	snapshots renderer
	registry  *session.Registry
	path      string
	timeout   time.Duration
}

func NewSnapshotJob(snapshots renderer, registry *session.Registry, path string) *SnapshotJob {
	return &SnapshotJob{
		snapshots: snapshots,
		registry:  registry,
		path:      path,
		timeout:   time.Minute,
	}
}

func (j *SnapshotJob) WriteSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := WriteSnapshotFile(ctx, j.snapshots, j.path); err != nil {
		slog.Info(err.Error())
		return
	}
	slog.Info("gallery snapshot written", "path", j.path)
}

func (j *SnapshotJob) SweepSessions() {
	if j.registry == nil {
		return
	}
	if dropped := j.registry.Sweep(); dropped > 0 {
		slog.Info("idle sessions dropped", "count", dropped, "remaining", j.registry.Len())
	}
}

// WriteSnapshotFile renders into a temporary file next to path and renames
// it into place, so readers never see a partial page.
func WriteSnapshotFile(ctx context.Context, snapshots renderer, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.html")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := snapshots.Render(ctx, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
