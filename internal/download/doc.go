// Package download implements the download orchestrator: a single background
// worker that turns a (URL, rendition) choice into one finished mp4. It runs
// the staged pipeline (primary fetch with stall-aware retries, audio
// acquisition, mux, optional compatibility re-encode) on top of yt-dlp and
// ffmpeg, and reports progress to the presentation layer as events.
package download
