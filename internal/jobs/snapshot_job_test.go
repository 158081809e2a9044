package job

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maheshrc27/walk-gallery/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	page string
	err  error
}

func (r stubRenderer) Render(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, r.page); err != nil {
		return err
	}
	return r.err
}

func TestWriteSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "gallery.html")

	require.NoError(t, WriteSnapshotFile(context.Background(), stubRenderer{page: "<html>one</html>"}, path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>one</html>", string(got))

	// A failed render leaves the previous page in place.
	err = WriteSnapshotFile(context.Background(), stubRenderer{page: "<html>tw", err: errors.New("boom")}, path)
	require.Error(t, err)
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>one</html>", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestSnapshotJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.html")
	registry := session.NewRegistry(time.Nanosecond)
	registry.Create()

	j := NewSnapshotJob(stubRenderer{page: "<html></html>"}, registry, path)
	j.WriteSnapshot()
	_, err := os.Stat(path)
	assert.NoError(t, err)

	time.Sleep(time.Millisecond)
	j.SweepSessions()
	assert.Equal(t, 0, registry.Len())
}
