package download

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ytget/ytgrab/internal/fetch"
	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
	"github.com/ytget/ytgrab/internal/recovery"
)

const testURL = "https://example.com/watch?v=abc"

// fakeFetcher writes small files instead of downloading
type fakeFetcher struct {
	mu         sync.Mutex
	desc       *model.VideoDescriptor
	probeErr   error
	probeCalls int
	// fetch overrides the default "write a file" behaviour; call is 1-based
	fetch      func(req fetch.FetchRequest, call int) error
	audio      func(base string) (string, error)
	fetchCalls []fetch.FetchRequest
	audioCalls int
}

func (f *fakeFetcher) Probe(_ context.Context, url string) (*model.VideoDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	d := *f.desc
	d.URL = url
	return &d, nil
}

func (f *fakeFetcher) FetchRendition(_ context.Context, req fetch.FetchRequest) error {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, req)
	call := len(f.fetchCalls)
	fn := f.fetch
	f.mu.Unlock()

	if fn != nil {
		return fn(req, call)
	}
	if req.OnProgress != nil {
		req.OnProgress(5, 10)
	}
	return os.WriteFile(req.Output, []byte("video"), 0644)
}

func (f *fakeFetcher) FetchAudioOnly(_ context.Context, _ string, base string, _ func() bool) (string, error) {
	f.mu.Lock()
	f.audioCalls++
	fn := f.audio
	f.mu.Unlock()

	if fn != nil {
		return fn(base)
	}
	path := base + fetch.CanonicalAudioExt
	return path, os.WriteFile(path, []byte("audio"), 0644)
}

func (f *fakeFetcher) calls() ([]fetch.FetchRequest, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetch.FetchRequest(nil), f.fetchCalls...), f.audioCalls
}

// fakeMedia records invocations and writes placeholder outputs
type fakeMedia struct {
	mu           sync.Mutex
	available    bool
	hasAudio     bool
	muxErr       error
	extractErr   error
	transcodeErr error
	ops          []string
}

func (m *fakeMedia) record(op string) {
	m.mu.Lock()
	m.ops = append(m.ops, op)
	m.mu.Unlock()
}

func (m *fakeMedia) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *fakeMedia) Available() bool { return m.available }

func (m *fakeMedia) HasAudioTrack(_ context.Context, path string) (bool, error) {
	m.record("probe")
	if _, err := os.Stat(path); err != nil {
		return false, err
	}
	return m.hasAudio, nil
}

func (m *fakeMedia) ExtractAudio(_ context.Context, _, out string) error {
	m.record("extract")
	if m.extractErr != nil {
		return m.extractErr
	}
	return os.WriteFile(out, []byte("audio"), 0644)
}

func (m *fakeMedia) MuxVideoAudio(_ context.Context, _, _, out string) error {
	m.record("mux")
	if m.muxErr != nil {
		return m.muxErr
	}
	return os.WriteFile(out, []byte("muxed"), 0644)
}

func (m *fakeMedia) Transcode(_ context.Context, _, out string, onProgress func(float64)) error {
	m.record("transcode")
	if m.transcodeErr != nil {
		return m.transcodeErr
	}
	if onProgress != nil {
		onProgress(1)
	}
	return os.WriteFile(out, []byte("compatible"), 0644)
}

// recorder collects events
type recorder struct {
	mu     sync.Mutex
	events []model.Event
	ch     chan model.Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan model.Event, 256)}
}

func (r *recorder) sink(e model.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.ch <- e:
	default:
	}
}

func (r *recorder) all() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

func (r *recorder) ofKind(kind model.EventKind) []model.Event {
	var out []model.Event
	for _, e := range r.all() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// startedSteps lists the step numbers of stage-start events in order
func (r *recorder) startedSteps() []int {
	var steps []int
	for _, e := range r.ofKind(model.EventStageStarted) {
		if len(steps) == 0 || steps[len(steps)-1] != e.Step {
			steps = append(steps, e.Step)
		}
	}
	return steps
}

func (r *recorder) waitTerminal(t *testing.T) model.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-r.ch:
			if e.IsTerminal() {
				return e
			}
		case <-timeout:
			t.Fatal("timed out waiting for terminal event")
			return model.Event{}
		}
	}
}

func descriptor(renditions ...model.RenditionInfo) *model.VideoDescriptor {
	return model.NewVideoDescriptor(testURL, "Test Title", 120, renditions)
}

var (
	r1080Silent = model.RenditionInfo{ID: "137", HeightPixels: 1080, ContainerExt: "mp4", Bitrate: 4400}
	r360Audio   = model.RenditionInfo{ID: "18", HeightPixels: 360, ContainerExt: "mp4", HasAudio: true, Bitrate: 500}
	r720Audio   = model.RenditionInfo{ID: "22", HeightPixels: 720, ContainerExt: "mp4", HasAudio: true, Bitrate: 1500}
)

type harness struct {
	o       *Orchestrator
	dir     string
	fetcher *fakeFetcher
	media   *fakeMedia
	events  *recorder
}

func testOptions() Options {
	return Options{
		MaxStalledAttempts: 3,
		MaxTotalAttempts:   20,
		RetryDelay:         0,
		CompatibilityPass:  false,
		ProgressInterval:   time.Millisecond,
	}
}

func newHarness(t *testing.T, f *fakeFetcher, m *fakeMedia, opts Options, confirmer Confirmer) *harness {
	t.Helper()
	dir := t.TempDir()
	rec := newRecorder()
	o := New(opts, Deps{
		Fetcher:   f,
		Media:     m,
		Namer:     platform.NewNamer(dir),
		Tracker:   recovery.NewTracker(),
		Confirmer: confirmer,
		Logger:    logging.Nop(),
	})
	o.SetEventSink(rec.sink)
	return &harness{o: o, dir: dir, fetcher: f, media: m, events: rec}
}

func writeBytes(t *testing.T, path string, n int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, n), 0644))
}
