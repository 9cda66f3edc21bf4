package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/fetch"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
	"github.com/ytget/ytgrab/internal/recovery"
)

// Intermediate file naming
const (
	AudioSuffix     = "_audio"
	SmallSuffix     = "_small"
	CompatTmpSuffix = ".tmp.mp4"
)

// ErrIncompleteTemp means a partial transfer sibling is still on disk
var ErrIncompleteTemp = errors.New("temp file is incomplete: partial transfer still present")

// execute drives the stage pipeline for s and reports the outcome
func (o *Orchestrator) execute(ctx context.Context, s *model.DownloadSession) error {
	o.setActive(s)
	// a Cancel between prepare and setActive only reaches pendingCancel
	if o.pendingCancel.Load() {
		s.RequestCancel()
	}
	log := o.logger.With().Str("session_id", s.ID).Logger()
	log.Info().
		Str("url", s.URL).
		Str("title", s.Title).
		Str("rendition", s.ChosenRendition.ID).
		Str("temp", s.TempPath).
		Bool("resume", s.IsResume).
		Msg("download started")

	finalPath, err := o.pipeline(ctx, s)
	switch {
	case err == nil:
		if terr := s.Transition(model.StageDone); terr != nil {
			log.Error().Err(terr).Msg("unexpected stage")
		}
		o.settle(s, false)
		log.Info().Str("final", finalPath).Msg("download complete")
		o.emit(model.Event{
			Kind:      model.EventSessionDone,
			SessionID: s.ID,
			Stage:     model.StageDone,
			FinalPath: finalPath,
			Message:   "saved to " + finalPath,
		})
		return nil

	case failure.IsCancelled(err) || s.CancelRequested():
		_ = s.Transition(model.StageCancelled)
		temp := existingTemp(s.TempPath)
		o.settle(s, temp != "")
		log.Info().Str("temp", temp).Msg("download cancelled")
		o.emit(model.Event{
			Kind:      model.EventSessionCancelled,
			SessionID: s.ID,
			Stage:     model.StageCancelled,
			TempPath:  temp,
			Message:   "cancelled by user",
		})
		return err

	default:
		s.Fail(err.Error())
		temp := failure.TempPathOf(err)
		if temp == "" {
			temp = s.TempPath
		}
		temp = existingTemp(temp)
		size := recovery.SizeOf(temp)
		category := failure.ClassifyError(err)
		o.settle(s, temp != "")

		ev := log.Error().Err(err).Str("category", string(category)).Str("kind", string(failure.KindOf(err)))
		if temp != "" {
			ev = ev.Str("temp", temp).Str("temp_size", humanize.Bytes(uint64(size)))
		}
		ev.Msg("download failed")

		o.emit(model.Event{
			Kind:        model.EventSessionFailed,
			SessionID:   s.ID,
			Stage:       model.StageFailed,
			Message:     err.Error(),
			TempPath:    temp,
			TempSize:    size,
			Category:    string(category),
			Remediation: failure.Remediation(category),
		})
		return err
	}
}

// pipeline runs stages 1 to 4 and returns the final path
func (o *Orchestrator) pipeline(ctx context.Context, s *model.DownloadSession) (string, error) {
	if err := o.checkCancelled(s, "start"); err != nil {
		return "", err
	}

	// Stage 1
	if err := s.Transition(model.StageFetchingPrimary); err != nil {
		return "", err
	}
	o.stageStarted(s, model.StepPrimary, "downloading "+s.ChosenRendition.Label())
	if err := o.fetchPrimary(ctx, s); err != nil {
		return "", err
	}
	o.stageFinished(s, model.StepPrimary, "video downloaded")
	if err := o.checkCancelled(s, "after primary"); err != nil {
		return "", err
	}

	// Audio check
	toolAvailable := o.media != nil && o.media.Available()
	if !toolAvailable {
		if !s.ChosenRendition.HasAudio {
			o.notice(s, "ffmpeg not found: audio could not be attached, saving video as-is")
		}
		return o.finalize(s)
	}

	hasAudio, err := o.media.HasAudioTrack(ctx, s.TempPath)
	if err != nil {
		if ctx.Err() != nil {
			return "", failure.New(failure.KindCancelled, "audio check", failure.ErrCancelled)
		}
		o.logger.Warn().Err(err).Str("session_id", s.ID).Msg("audio check failed, trusting catalog metadata")
		hasAudio = s.ChosenRendition.HasAudio
	}
	if hasAudio {
		return o.finalize(s)
	}

	// Stage 2
	if err := s.Transition(model.StageFetchingAudio); err != nil {
		return "", err
	}
	o.stageStarted(s, model.StepAudio, "downloading audio track")
	audioPath, err := o.acquireAudio(ctx, s)
	if err != nil {
		return "", err
	}
	o.stageFinished(s, model.StepAudio, "audio downloaded")

	// Stage 3 only reports that the audio is in hand
	o.stageStarted(s, model.StepAudioDone, "audio ready")
	o.stageFinished(s, model.StepAudioDone, "audio ready")
	if err := o.checkCancelled(s, "before mux"); err != nil {
		o.removeIntermediate(s, audioPath)
		return "", err
	}

	// Stage 4
	if err := s.Transition(model.StageMuxing); err != nil {
		return "", err
	}
	o.stageStarted(s, model.StepMux, "merging video and audio")
	finalPath, err := o.mux(ctx, s, audioPath)
	if err != nil {
		return "", err
	}
	o.stageFinished(s, model.StepMux, "merged")

	if o.opts.CompatibilityPass && !s.CancelRequested() {
		if err := s.Transition(model.StageTranscoding); err == nil {
			o.compatibilityPass(ctx, s, finalPath)
		}
	}
	return finalPath, nil
}

// fetchPrimary downloads the chosen rendition into the temp path. Each failed
// attempt is judged by the tracker: growth resets the stall counter, no
// growth increments it once. Reaching MaxStalledAttempts stalls, or
// MaxTotalAttempts attempts overall, fails with the temp path attached.
func (o *Orchestrator) fetchPrimary(ctx context.Context, s *model.DownloadSession) error {
	o.tracker.Reset(s.TempPath)
	s.ObserveTempSize(o.tracker.Size())
	s.ResetStalls()
	limiter := o.progressLimiter()

	for attempt := 1; ; attempt++ {
		if err := o.checkCancelled(s, "fetch primary"); err != nil {
			return err
		}

		err := o.fetcher.FetchRendition(ctx, fetch.FetchRequest{
			URL:         s.URL,
			Selector:    s.ChosenRendition.ID,
			Output:      s.TempPath,
			OnProgress:  o.progressSink(s, model.StageFetchingPrimary, model.StepPrimary, limiter),
			IsCancelled: s.CancelRequested,
		})
		if err == nil {
			s.ObserveTempSize(recovery.SizeOf(s.TempPath))
			return nil
		}
		if failure.IsCancelled(err) || s.CancelRequested() || ctx.Err() != nil {
			return failure.New(failure.KindCancelled, "fetch primary", failure.ErrCancelled)
		}

		if o.tracker.Progressed(s.TempPath) {
			s.ResetStalls()
			s.ObserveTempSize(o.tracker.Size())
			o.logger.Info().Err(err).Str("session_id", s.ID).Int("attempt", attempt).
				Str("size", humanize.Bytes(uint64(o.tracker.Size()))).Msg("attempt failed after progress, retrying")
		} else {
			stalls := s.RecordStall()
			o.logger.Warn().Err(err).Str("session_id", s.ID).Int("attempt", attempt).Int("stalls", stalls).
				Msg("attempt failed without progress")
			if stalls >= o.opts.MaxStalledAttempts {
				return failure.New(failure.KindTransfer, "fetch primary",
					fmt.Errorf("no progress after %d attempts: %w", stalls, err)).WithTemp(s.TempPath)
			}
		}
		if attempt >= o.opts.MaxTotalAttempts {
			return failure.New(failure.KindTransfer, "fetch primary",
				fmt.Errorf("gave up after %d attempts: %w", attempt, err)).WithTemp(s.TempPath)
		}

		o.notice(s, fmt.Sprintf("attempt %d failed, retrying: %v", attempt, err))
		if err := sleepCtx(ctx, o.opts.RetryDelay); err != nil {
			return failure.New(failure.KindCancelled, "fetch primary", failure.ErrCancelled)
		}
	}
}

// acquireAudio tries a direct audio fetch, then the smallest progressive
// rendition with its audio extracted
func (o *Orchestrator) acquireAudio(ctx context.Context, s *model.DownloadSession) (string, error) {
	base := strings.TrimSuffix(s.TempPath, filepath.Ext(s.TempPath)) + AudioSuffix

	audioPath, err := o.fetcher.FetchAudioOnly(ctx, s.URL, base, s.CancelRequested)
	if err == nil {
		return audioPath, nil
	}
	fetch.RemoveAudio(base, o.logger)
	if failure.IsCancelled(err) || s.CancelRequested() {
		return "", failure.New(failure.KindCancelled, "fetch audio", failure.ErrCancelled)
	}
	o.logger.Warn().Err(err).Str("session_id", s.ID).Msg("direct audio fetch failed, trying small rendition")
	o.notice(s, "audio-only download failed, extracting audio from a small video")

	selector := fetch.SelectorSmallestWithAudio
	if desc := o.cachedDescriptor(s.URL); desc != nil {
		if r, ok := desc.SmallestWithAudio(); ok {
			selector = r.ID
		}
	}

	small := strings.TrimSuffix(s.TempPath, filepath.Ext(s.TempPath)) + SmallSuffix + platform.FinalExt
	err = o.fetcher.FetchRendition(ctx, fetch.FetchRequest{
		URL:         s.URL,
		Selector:    selector,
		Output:      small,
		IsCancelled: s.CancelRequested,
	})
	if err != nil {
		o.removeIntermediate(s, small)
		if failure.IsCancelled(err) || s.CancelRequested() {
			return "", failure.New(failure.KindCancelled, "fetch audio", failure.ErrCancelled)
		}
		return "", failure.New(failure.KindAudioAcquisition, "fetch audio",
			fmt.Errorf("all audio sources failed: %w", err)).WithTemp(s.TempPath)
	}

	audioPath = base + fetch.CanonicalAudioExt
	err = o.media.ExtractAudio(ctx, small, audioPath)
	o.removeIntermediate(s, small)
	if err != nil {
		o.removeIntermediate(s, audioPath)
		return "", failure.New(failure.KindAudioAcquisition, "extract audio", err).WithTemp(s.TempPath)
	}
	return audioPath, nil
}

// mux writes the final file from the silent video and the audio track. Both
// inputs are removed whatever the outcome.
func (o *Orchestrator) mux(ctx context.Context, s *model.DownloadSession, audioPath string) (string, error) {
	finalPath, err := o.namer.UniqueFinalName(s.Title, s.IsRedownload)
	if err != nil {
		o.removeIntermediate(s, audioPath)
		return "", failure.New(failure.KindMux, "mux", err).WithTemp(s.TempPath)
	}

	err = o.media.MuxVideoAudio(ctx, s.TempPath, audioPath, finalPath)
	o.removeIntermediate(s, s.TempPath)
	o.removeIntermediate(s, audioPath)
	if err != nil {
		o.removeIntermediate(s, finalPath)
		if ctx.Err() != nil {
			return "", failure.New(failure.KindCancelled, "mux", failure.ErrCancelled)
		}
		return "", failure.New(failure.KindMux, "mux", err)
	}

	s.FinalPath = finalPath
	return finalPath, nil
}

// finalize renames the temp file to a fresh final name. It refuses when a
// partial sibling remains, when the temp file is gone, or when the target
// already exists.
func (o *Orchestrator) finalize(s *model.DownloadSession) (string, error) {
	if recovery.HasPartial(s.TempPath) {
		return "", failure.New(failure.KindTransfer, "finalize", ErrIncompleteTemp).WithTemp(s.TempPath)
	}
	if _, err := os.Stat(s.TempPath); err != nil {
		return "", failure.New(failure.KindTransfer, "finalize", fmt.Errorf("temp file missing: %w", err))
	}

	finalPath, err := o.namer.UniqueFinalName(s.Title, s.IsRedownload)
	if err != nil {
		return "", failure.New(failure.KindTransfer, "finalize", err).WithTemp(s.TempPath)
	}
	if _, err := os.Stat(finalPath); err == nil {
		return "", failure.Newf(failure.KindTransfer, "finalize", "target already exists: %s", finalPath).WithTemp(s.TempPath)
	}
	if err := os.Rename(s.TempPath, finalPath); err != nil {
		return "", failure.New(failure.KindTransfer, "finalize", err).WithTemp(s.TempPath)
	}

	s.FinalPath = finalPath
	o.logger.Info().Str("session_id", s.ID).Str("final", finalPath).Msg("temp file renamed")
	return finalPath, nil
}

// compatibilityPass re-encodes the final file through a side path and swaps
// it in on success. Failures leave the muxed file untouched.
func (o *Orchestrator) compatibilityPass(ctx context.Context, s *model.DownloadSession, finalPath string) {
	o.stageStarted(s, model.StepMux, "improving compatibility")
	tmp := finalPath + CompatTmpSuffix
	limiter := o.progressLimiter()

	err := o.media.Transcode(ctx, finalPath, tmp, func(p float64) {
		if limiter.Allow() {
			o.emit(model.Event{
				Kind:      model.EventProgress,
				SessionID: s.ID,
				Stage:     model.StageTranscoding,
				Step:      model.StepMux,
				Percent:   p * 100,
			})
		}
	})
	if err != nil {
		o.removeIntermediate(s, tmp)
		o.logger.Warn().Err(err).Str("session_id", s.ID).Msg("compatibility pass failed, keeping muxed file")
		o.notice(s, "compatibility re-encode skipped")
		return
	}
	if err := os.Rename(tmp, finalPath); err != nil {
		o.removeIntermediate(s, tmp)
		o.logger.Warn().Err(err).Str("session_id", s.ID).Msg("failed to swap re-encoded file")
		return
	}
	o.stageFinished(s, model.StepMux, "compatibility re-encode done")
}

// progressSink converts fetch progress into throttled events
func (o *Orchestrator) progressSink(s *model.DownloadSession, stage model.Stage, step int, limiter *rate.Limiter) fetch.ProgressFunc {
	return func(downloaded, total int64) {
		if !limiter.Allow() {
			return
		}
		var percent float64
		if total > 0 {
			percent = float64(downloaded) / float64(total) * 100
		}
		o.emit(model.Event{
			Kind:            model.EventProgress,
			SessionID:       s.ID,
			Stage:           stage,
			Step:            step,
			DownloadedBytes: downloaded,
			TotalBytes:      total,
			Percent:         percent,
			Message:         fmt.Sprintf("%s / %s", humanize.Bytes(uint64(downloaded)), humanize.Bytes(uint64(total))),
		})
	}
}

func (o *Orchestrator) progressLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(o.opts.ProgressInterval), 1)
}

func (o *Orchestrator) checkCancelled(s *model.DownloadSession, op string) error {
	if s.CancelRequested() {
		return failure.New(failure.KindCancelled, op, failure.ErrCancelled)
	}
	return nil
}

func (o *Orchestrator) stageStarted(s *model.DownloadSession, step int, msg string) {
	o.logger.Info().Str("session_id", s.ID).Int("step", step).Str("stage", s.Stage().String()).Msg(msg)
	o.emit(model.Event{Kind: model.EventStageStarted, SessionID: s.ID, Stage: s.Stage(), Step: step, Message: msg})
}

func (o *Orchestrator) stageFinished(s *model.DownloadSession, step int, msg string) {
	o.emit(model.Event{Kind: model.EventStageFinished, SessionID: s.ID, Stage: s.Stage(), Step: step, Message: msg})
}

func (o *Orchestrator) notice(s *model.DownloadSession, msg string) {
	o.emit(model.Event{Kind: model.EventNotice, SessionID: s.ID, Stage: s.Stage(), Message: msg})
}

// removeIntermediate deletes a file and its partial variant, logging failures
func (o *Orchestrator) removeIntermediate(s *model.DownloadSession, path string) {
	if path == "" {
		return
	}
	if err := recovery.Discard(path); err != nil {
		o.logger.Warn().Err(err).Str("session_id", s.ID).Str("path", path).Msg("cleanup failed")
	}
}

// existingTemp returns path if it or its partial variant is on disk
func existingTemp(path string) string {
	if path == "" {
		return ""
	}
	if _, ok := recovery.ResolveVariant(path); ok {
		return path
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
