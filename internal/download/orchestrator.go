package download

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/recovery"
)

// Command rejections
var (
	ErrBusy            = errors.New("a download is already in progress")
	ErrNoResumableTemp = errors.New("no resumable temp file")
	ErrNoRendition     = errors.New("rendition not available for this video")
	ErrEmptyURL        = errors.New("URL is empty")
)

// job is one unit of work for the worker
type job struct {
	url         string
	renditionID string
	resume      bool
	tempPath    string
	// known when resuming a retained session, skips the probe
	title     string
	rendition *model.RenditionInfo
}

// Orchestrator runs at most one download session at a time
type Orchestrator struct {
	opts      Options
	fetcher   Fetcher
	media     MediaTool
	namer     Namer
	tracker   ProgressTracker
	confirmer Confirmer
	logger    zerolog.Logger

	// single-flight gate held from Start/Resume until the session ends
	gate *semaphore.Weighted
	jobs chan job

	// cancellation requested before the session object exists
	pendingCancel atomic.Bool

	mu          sync.Mutex
	sink        func(model.Event)
	active      *model.DownloadSession
	last        *model.DownloadSession
	retained    *model.DownloadSession
	startupTemp *model.TempFileRecord
	descriptor  *model.VideoDescriptor
}

// New creates an orchestrator
func New(opts Options, deps Deps) *Orchestrator {
	return &Orchestrator{
		opts:      opts.withDefaults(),
		fetcher:   deps.Fetcher,
		media:     deps.Media,
		namer:     deps.Namer,
		tracker:   deps.Tracker,
		confirmer: deps.Confirmer,
		logger:    logging.Component(deps.Logger, "orchestrator"),
		gate:      semaphore.NewWeighted(1),
		jobs:      make(chan job, 1),
	}
}

// SetEventSink sets the subscriber for events. It is called from the worker
// goroutine and must not block for long.
func (o *Orchestrator) SetEventSink(sink func(model.Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sink = sink
}

// SetTempCandidate records a leftover temp file found by a directory scan
func (o *Orchestrator) SetTempCandidate(rec *model.TempFileRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startupTemp = rec
}

// Reconfigure swaps the options and, when namer is not nil, the destination
// naming. It is refused while a session runs; a retained session keeps its
// temp path.
func (o *Orchestrator) Reconfigure(opts Options, namer Namer) error {
	if !o.gate.TryAcquire(1) {
		return ErrBusy
	}
	defer o.gate.Release(1)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = opts.withDefaults()
	if namer != nil {
		o.namer = namer
	}
	return nil
}

// Run executes dispatched jobs until ctx is done
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Debug().Msg("worker started")
	defer o.logger.Debug().Msg("worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-o.jobs:
			_ = o.runJob(ctx, j)
			o.gate.Release(1)
		}
	}
}

// Dispatch hands a user decision to the orchestrator. Start and Resume are
// queued for the worker; Cancel and DiscardTemp take effect immediately.
func (o *Orchestrator) Dispatch(cmd model.Command) error {
	switch cmd.Kind {
	case model.CommandStart:
		j, err := o.startJob(cmd)
		if err != nil {
			return err
		}
		return o.enqueue(j)
	case model.CommandResume:
		if !o.gate.TryAcquire(1) {
			return ErrBusy
		}
		j, err := o.resumeJob(cmd)
		if err != nil {
			o.gate.Release(1)
			return err
		}
		o.pendingCancel.Store(false)
		o.jobs <- j
		return nil
	case model.CommandCancel:
		o.Cancel()
		return nil
	case model.CommandDiscardTemp:
		return o.DiscardTemp()
	default:
		return fmt.Errorf("unknown command %q", cmd.Kind)
	}
}

// Download runs one Start or Resume command synchronously on the calling
// goroutine. It is rejected with ErrBusy while another session runs.
func (o *Orchestrator) Download(ctx context.Context, cmd model.Command) error {
	if !o.gate.TryAcquire(1) {
		return ErrBusy
	}
	defer o.gate.Release(1)
	o.pendingCancel.Store(false)

	var (
		j   job
		err error
	)
	switch cmd.Kind {
	case model.CommandStart:
		j, err = o.startJob(cmd)
	case model.CommandResume:
		j, err = o.resumeJob(cmd)
	default:
		err = fmt.Errorf("command %q cannot be run synchronously", cmd.Kind)
	}
	if err != nil {
		return err
	}
	return o.runJob(ctx, j)
}

// executeSession runs the pipeline for an already prepared session
func (o *Orchestrator) executeSession(ctx context.Context, s *model.DownloadSession) error {
	if !o.gate.TryAcquire(1) {
		return ErrBusy
	}
	defer o.gate.Release(1)
	o.pendingCancel.Store(false)
	return o.execute(ctx, s)
}

// Cancel requests cooperative cancellation of the running session
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()

	if active != nil {
		o.logger.Info().Str("session_id", active.ID).Msg("cancellation requested")
		active.RequestCancel()
		return
	}
	// still preparing (probe, confirmation) or idle
	o.pendingCancel.Store(true)
}

// DiscardTemp deletes the retained temp file (and its partial variant) and
// forgets it. It is refused while a session runs.
func (o *Orchestrator) DiscardTemp() error {
	if !o.gate.TryAcquire(1) {
		return ErrBusy
	}
	defer o.gate.Release(1)

	o.mu.Lock()
	path := o.retainedPathLocked()
	o.retained = nil
	o.startupTemp = nil
	o.mu.Unlock()

	if path == "" {
		return ErrNoResumableTemp
	}
	if err := recovery.Discard(path); err != nil {
		return fmt.Errorf("failed to discard %s: %w", path, err)
	}
	o.logger.Info().Str("path", path).Msg("temp file discarded")
	o.emit(model.Event{Kind: model.EventNotice, Message: "temp file removed", TempPath: path})
	return nil
}

// Probe fetches the rendition catalog and caches it for the next Start of
// the same URL
func (o *Orchestrator) Probe(ctx context.Context, url string) (*model.VideoDescriptor, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, failure.New(failure.KindProbe, "probe", ErrEmptyURL)
	}
	desc, err := o.fetcher.Probe(ctx, url)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.descriptor = desc
	o.mu.Unlock()
	return desc, nil
}

// Session returns a snapshot of the running or most recent session
func (o *Orchestrator) Session() (model.SessionSnapshot, bool) {
	o.mu.Lock()
	s := o.active
	if s == nil {
		s = o.last
	}
	o.mu.Unlock()

	if s == nil {
		return model.SessionSnapshot{}, false
	}
	return s.Snapshot(), true
}

// Busy reports whether a session is queued or running
func (o *Orchestrator) Busy() bool {
	if !o.gate.TryAcquire(1) {
		return true
	}
	o.gate.Release(1)
	return false
}

// Retained returns the temp path that Resume would continue, or ""
func (o *Orchestrator) Retained() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.retainedPathLocked()
}

func (o *Orchestrator) retainedPathLocked() string {
	if o.retained != nil && o.retained.TempPath != "" {
		return o.retained.TempPath
	}
	if o.startupTemp != nil {
		return o.startupTemp.Path
	}
	return ""
}

// enqueue hands a job to the worker, holding the gate until it finishes
func (o *Orchestrator) enqueue(j job) error {
	if !o.gate.TryAcquire(1) {
		return ErrBusy
	}
	o.pendingCancel.Store(false)
	o.jobs <- j
	return nil
}

func (o *Orchestrator) startJob(cmd model.Command) (job, error) {
	url := strings.TrimSpace(cmd.URL)
	if url == "" {
		return job{}, ErrEmptyURL
	}
	return job{url: url, renditionID: cmd.RenditionID}, nil
}

// resumeJob prefers the retained session and falls back to a temp
// file found on disk, which needs the URL and rendition from the command.
// The temp file must still exist in either form.
func (o *Orchestrator) resumeJob(cmd model.Command) (job, error) {
	o.mu.Lock()
	retained := o.retained
	startup := o.startupTemp
	o.mu.Unlock()

	var j job
	switch {
	case retained != nil && retained.TempPath != "":
		r := retained.ChosenRendition
		j = job{
			url:         retained.URL,
			renditionID: r.ID,
			tempPath:    retained.TempPath,
			title:       retained.Title,
			rendition:   &r,
		}
	case startup != nil && strings.TrimSpace(cmd.URL) != "":
		j = job{url: strings.TrimSpace(cmd.URL), renditionID: cmd.RenditionID, tempPath: startup.Path}
	default:
		return job{}, ErrNoResumableTemp
	}
	j.resume = true

	if _, ok := recovery.ResolveVariant(j.tempPath); !ok {
		o.logger.Warn().Str("path", j.tempPath).Msg("temp file vanished, cannot resume")
		o.mu.Lock()
		o.retained = nil
		if o.startupTemp != nil && o.startupTemp.Path == j.tempPath {
			o.startupTemp = nil
		}
		o.mu.Unlock()
		return job{}, ErrNoResumableTemp
	}
	return j, nil
}

// runJob prepares a session for j and executes it. Failures before the
// pipeline starts are reported as session failures too.
func (o *Orchestrator) runJob(ctx context.Context, j job) error {
	s, err := o.prepare(ctx, j)
	if err != nil {
		if failure.IsCancelled(err) {
			o.emit(model.Event{Kind: model.EventSessionCancelled, Message: err.Error()})
			return err
		}
		o.logger.Warn().Err(err).Str("url", j.url).Msg("could not start download")
		category := failure.ClassifyError(err)
		o.emit(model.Event{
			Kind:        model.EventSessionFailed,
			Message:     err.Error(),
			Category:    string(category),
			Remediation: failure.Remediation(category),
		})
		return err
	}
	if s == nil {
		o.emit(model.Event{Kind: model.EventSessionSkipped, Message: "download skipped: file already exists"})
		return nil
	}
	return o.execute(ctx, s)
}

// prepare resolves the descriptor and rendition, asks about existing files
// and assigns the temp path. A nil session means the user declined.
func (o *Orchestrator) prepare(ctx context.Context, j job) (*model.DownloadSession, error) {
	title := j.title
	var rendition model.RenditionInfo

	if j.rendition != nil {
		rendition = *j.rendition
	} else {
		desc, err := o.descriptorFor(ctx, j.url)
		if err != nil {
			return nil, err
		}
		title = desc.Title
		r, ok := o.pickRendition(desc, j.renditionID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoRendition, j.renditionID)
		}
		rendition = r
	}

	if o.pendingCancel.Load() {
		return nil, failure.New(failure.KindCancelled, "prepare", failure.ErrCancelled)
	}

	isRedownload := false
	if !j.resume {
		if existing, ok := o.namer.FindExistingSimilarFile(title); ok {
			if o.confirmer != nil && !o.confirmer.ConfirmRedownload(ctx, existing) {
				o.logger.Info().Str("existing", existing).Msg("redownload declined")
				return nil, nil
			}
			isRedownload = true
		}
	}

	s := model.NewSession(j.url, title, rendition)
	s.IsRedownload = isRedownload
	s.IsResume = j.resume
	if j.resume {
		s.TempPath = j.tempPath
	} else {
		tmp, err := o.namer.TempName(j.url, rendition.ID, title)
		if err != nil {
			return nil, fmt.Errorf("failed to name temp file: %w", err)
		}
		s.TempPath = tmp
	}
	if o.pendingCancel.Load() {
		s.RequestCancel()
	}
	return s, nil
}

// descriptorFor returns the cached probe result for url or probes it
func (o *Orchestrator) descriptorFor(ctx context.Context, url string) (*model.VideoDescriptor, error) {
	o.mu.Lock()
	desc := o.descriptor
	o.mu.Unlock()
	if desc != nil && desc.URL == url {
		return desc, nil
	}
	o.logger.Debug().Str("url", url).Msg("no cached descriptor, probing")
	return o.Probe(ctx, url)
}

// pickRendition resolves the requested id, defaulting to the best rendition
func (o *Orchestrator) pickRendition(desc *model.VideoDescriptor, id string) (model.RenditionInfo, bool) {
	if id == "" {
		return desc.Best()
	}
	return desc.FindRendition(id)
}

// cachedDescriptor returns the probe result for url if one is cached
func (o *Orchestrator) cachedDescriptor(url string) *model.VideoDescriptor {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.descriptor != nil && o.descriptor.URL == url {
		return o.descriptor
	}
	return nil
}

func (o *Orchestrator) setActive(s *model.DownloadSession) {
	o.mu.Lock()
	o.active = s
	o.mu.Unlock()
}

// settle records how the session ended. Failed or cancelled sessions with a
// temp file on disk are kept for Resume and DiscardTemp.
func (o *Orchestrator) settle(s *model.DownloadSession, retain bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = nil
	o.last = s
	if retain {
		o.retained = s
	} else {
		o.retained = nil
	}
	if o.startupTemp != nil && o.startupTemp.Path == s.TempPath {
		o.startupTemp = nil
	}
}

// emit stamps and delivers an event
func (o *Orchestrator) emit(e model.Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	o.mu.Lock()
	sink := o.sink
	o.mu.Unlock()
	if sink != nil {
		sink(e)
	}
}
