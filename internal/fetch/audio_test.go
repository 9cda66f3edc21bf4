package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytgrab/internal/logging"
)

type fakeConverter struct {
	available bool
	err       error
	calls     [][2]string
}

func (f *fakeConverter) Available() bool { return f.available }

func (f *fakeConverter) ExtractAudio(_ context.Context, in, out string) error {
	f.calls = append(f.calls, [2]string{in, out})
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("m4a"), 0644)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
}

func TestNormalizeAudio_AlreadyCanonical(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_audio")
	writeFile(t, base+".m4a")
	conv := &fakeConverter{available: true}

	got, err := NormalizeAudio(context.Background(), base, conv, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, base+".m4a", got)
	assert.Empty(t, conv.calls)
}

func TestNormalizeAudio_TranscodesWithTool(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_audio")
	writeFile(t, base+".opus")
	conv := &fakeConverter{available: true}

	got, err := NormalizeAudio(context.Background(), base, conv, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, base+".m4a", got)
	require.Len(t, conv.calls, 1)
	assert.Equal(t, base+".opus", conv.calls[0][0])
	assert.NoFileExists(t, base+".opus")
}

func TestNormalizeAudio_RenamesWithoutTool(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_audio")
	writeFile(t, base+".webm")

	got, err := NormalizeAudio(context.Background(), base, &fakeConverter{}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, base+".m4a", got)
	assert.FileExists(t, got)
	assert.NoFileExists(t, base+".webm")
}

func TestNormalizeAudio_ConversionFails(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_audio")
	writeFile(t, base+".mp3")
	conv := &fakeConverter{available: true, err: errors.New("ffmpeg exited with code 1")}

	_, err := NormalizeAudio(context.Background(), base, conv, logging.Nop())
	assert.Error(t, err)
	assert.NoFileExists(t, base+".mp3")
	assert.NoFileExists(t, base+".m4a")
}

func TestRemoveAudio(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_audio")
	writeFile(t, base+".webm")
	writeFile(t, base+".m4a.part")
	other := base + "_keep.m4a"
	writeFile(t, other)

	RemoveAudio(base, logging.Nop())
	assert.NoFileExists(t, base+".webm")
	assert.NoFileExists(t, base+".m4a.part")
	assert.FileExists(t, other)
}

func TestNormalizeAudio_NothingProduced(t *testing.T) {
	base := filepath.Join(t.TempDir(), "temp_audio")
	_, err := NormalizeAudio(context.Background(), base, nil, logging.Nop())
	assert.Error(t, err)
}
