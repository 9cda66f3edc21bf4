// Package ui is the Fyne desktop front end. It probes a URL, lets the user
// pick a rendition, sends commands to the download orchestrator and renders
// its events as a progress bar, a log view and dialogs. Orchestrator events
// arrive on the worker goroutine and are moved onto the UI thread with fyne.Do.
package ui
