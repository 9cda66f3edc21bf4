package recovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatch_ReportsTempFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	changes := make(chan *model.TempFileRecord, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, logging.Nop(), dir, func(rec *model.TempFileRecord) {
			select {
			case changes <- rec:
			default:
			}
		})
	}()

	var rec *model.TempFileRecord
	var created []string
	// the watcher may not be registered yet when the first file appears,
	// so keep creating fresh temp files until one is reported
	require.Eventually(t, func() bool {
		path := filepath.Join(dir, fmt.Sprintf("temp_%012x.mp4", len(created)))
		created = append(created, path)
		_ = os.WriteFile(path, []byte("x"), 0644)
		select {
		case rec = <-changes:
			return rec != nil
		case <-time.After(500 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, dir, filepath.Dir(rec.Path))

	for _, path := range created {
		require.NoError(t, os.Remove(path))
	}
	require.Eventually(t, func() bool {
		select {
		case rec = <-changes:
			return rec == nil
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), logging.Nop(), filepath.Join(t.TempDir(), "missing"), func(*model.TempFileRecord) {})
	assert.Error(t, err)
}
