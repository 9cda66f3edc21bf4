package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_UnrecognizedFallsBackToUnknown(t *testing.T) {
	for _, msg := range []string{"", "exit status 1", "something odd happened", "Ошибка"} {
		assert.Equal(t, CategoryUnknown, Classify(msg), "message %q", msg)
	}
}

func TestClassify_KnownKeywords(t *testing.T) {
	assert.Equal(t, CategoryNetwork, Classify("Connection reset by peer"))
	assert.Equal(t, CategoryDisk, Classify("write failed: no space left on device"))
	assert.Equal(t, CategoryPermission, Classify("open /x: Permission denied"))
	assert.Equal(t, CategoryURL, Classify("ERROR: Private video"))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, Category(""), ClassifyError(nil))
	assert.Equal(t, Category(""), ClassifyError(fmt.Errorf("fetch: %w", ErrCancelled)))
	assert.Equal(t, CategoryUnknown, ClassifyError(errors.New("boom")))
}

func TestRemediation(t *testing.T) {
	assert.NotEmpty(t, Remediation(CategoryNetwork))
	assert.Equal(t, Remediation(CategoryUnknown), Remediation(Category("nonexistent")))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"foreign", errors.New("x"), KindUnknown},
		{"mux", New(KindMux, "mux", errors.New("bad")), KindMux},
		{"wrapped", fmt.Errorf("stage: %w", New(KindProbe, "probe", errors.New("private"))), KindProbe},
		{"sentinel cancel", fmt.Errorf("fetch: %w", ErrCancelled), KindCancelled},
		{"kind cancel", New(KindCancelled, "fetch", nil), KindCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestTempPathOf(t *testing.T) {
	base := New(KindTransfer, "fetch", errors.New("stalled")).WithTemp("/d/temp_abc.mp4")
	wrapped := fmt.Errorf("stage 1: %w", base)

	assert.Equal(t, "/d/temp_abc.mp4", TempPathOf(wrapped))
	assert.Equal(t, "", TempPathOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	err := Newf(KindMux, "mux", "ffmpeg exited: %s", "Invalid data")
	require.Error(t, err)
	assert.Equal(t, "mux: ffmpeg exited: Invalid data", err.Error())
	assert.Equal(t, "mux: tool_missing", New(KindToolMissing, "mux", nil).Error())
}
