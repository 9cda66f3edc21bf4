package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/logging"
)

const progressLine = `progress:{"info":{"id":"abc"},"progress":{"status":"downloading","downloaded_bytes":%d,"total_bytes":100,"filename":"v.mp4"}}`

// fakeYTDLP writes a shell script standing in for yt-dlp and returns its path
func fakeYTDLP(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script executable")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func testAdapter(executable string, conv AudioConverter) *Adapter {
	return NewAdapter(Options{Executable: executable, ProgressInterval: 100 * time.Millisecond}, conv, logging.Nop())
}

// flagValue returns the argument following flag in args
func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func TestFetchRendition_PassesContinuationFlags(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	script := fakeYTDLP(t, fmt.Sprintf(`printf '%%s\n' "$@" > %q`, argsFile))
	output := filepath.Join(t.TempDir(), "temp_abcdefabcdef.mp4")

	err := testAdapter(script, nil).FetchRendition(context.Background(), FetchRequest{
		URL:      "https://example.com/watch?v=abc",
		Selector: "137",
		Output:   output,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")

	assert.Contains(t, args, "--continue")
	assert.Contains(t, args, "--no-playlist")
	v, ok := flagValue(args, "--concurrent-fragments")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	v, _ = flagValue(args, "--format")
	assert.Equal(t, "137", v)
	v, _ = flagValue(args, "--output")
	assert.Equal(t, output, v)
	assert.Equal(t, "https://example.com/watch?v=abc", args[len(args)-1])
}

func TestFetchRendition_ReportsProgress(t *testing.T) {
	script := fakeYTDLP(t, fmt.Sprintf("echo '%s'\necho '%s'", fmt.Sprintf(progressLine, 10), fmt.Sprintf(progressLine, 60)))

	var last atomic.Int64
	err := testAdapter(script, nil).FetchRendition(context.Background(), FetchRequest{
		URL:    "https://example.com/watch?v=abc",
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		OnProgress: func(downloaded, total int64) {
			assert.Equal(t, int64(100), total)
			last.Store(downloaded)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), last.Load())
}

func TestFetchRendition_CancelledFromProgress(t *testing.T) {
	script := fakeYTDLP(t, fmt.Sprintf("echo '%s'\necho '%s'\nexec sleep 5", fmt.Sprintf(progressLine, 10), fmt.Sprintf(progressLine, 20)))

	var stop atomic.Bool
	started := time.Now()
	err := testAdapter(script, nil).FetchRendition(context.Background(), FetchRequest{
		URL:         "https://example.com/watch?v=abc",
		Output:      filepath.Join(t.TempDir(), "out.mp4"),
		OnProgress:  func(int64, int64) { stop.Store(true) },
		IsCancelled: stop.Load,
	})

	require.Error(t, err)
	assert.True(t, failure.IsCancelled(err), "got %v", err)
	assert.Equal(t, failure.KindCancelled, failure.KindOf(err))
	assert.Less(t, time.Since(started), 4*time.Second, "transfer is aborted, not waited out")
}

func TestFetchRendition_CancelledBeforeStart(t *testing.T) {
	err := testAdapter(filepath.Join(t.TempDir(), "missing"), nil).FetchRendition(context.Background(), FetchRequest{
		URL:         "https://example.com/watch?v=abc",
		Output:      filepath.Join(t.TempDir(), "out.mp4"),
		IsCancelled: func() bool { return true },
	})
	assert.True(t, failure.IsCancelled(err))
}

func TestFetchRendition_ExitCodeIsTransferFailure(t *testing.T) {
	script := fakeYTDLP(t, "echo 'WARNING: retrying' >&2\necho 'ERROR: [youtube] abc: Video unavailable' >&2\nexit 1")

	err := testAdapter(script, nil).FetchRendition(context.Background(), FetchRequest{
		URL:    "https://example.com/watch?v=abc",
		Output: filepath.Join(t.TempDir(), "out.mp4"),
	})
	require.Error(t, err)
	assert.Equal(t, failure.KindTransfer, failure.KindOf(err))
	assert.False(t, failure.IsCancelled(err))
	assert.Contains(t, err.Error(), "Video unavailable")
}

func TestFetchAudioOnly_RenamesWithoutConverter(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_abcdefabcdef_audio")
	script := fakeYTDLP(t, fmt.Sprintf("echo audio > %q", base+".webm"))

	got, err := testAdapter(script, &fakeConverter{}).FetchAudioOnly(context.Background(), "https://example.com/watch?v=abc", base, nil)
	require.NoError(t, err)
	assert.Equal(t, base+CanonicalAudioExt, got)
	assert.FileExists(t, got)
	assert.NoFileExists(t, base+".webm")
}

func TestFetchAudioOnly_NothingProduced(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_abcdefabcdef_audio")
	script := fakeYTDLP(t, "exit 0")

	_, err := testAdapter(script, nil).FetchAudioOnly(context.Background(), "https://example.com/watch?v=abc", base, nil)
	require.Error(t, err)
	assert.Equal(t, failure.KindAudioAcquisition, failure.KindOf(err))
}

func TestWithStderr(t *testing.T) {
	base := errors.New("exit code 1")

	assert.Equal(t, base, withStderr(base, nil))
	assert.Equal(t, base, withStderr(base, &ytdlp.Result{Stderr: "  "}))

	lines := []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7"}
	err := withStderr(base, &ytdlp.Result{Stderr: strings.Join(lines, "\n")})
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "l3\nl4\nl5\nl6\nl7")
	assert.NotContains(t, err.Error(), "l2")
}
