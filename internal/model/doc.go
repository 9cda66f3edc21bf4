package model

// Package model defines domain data structures shared by the download core and
// the presentation layer: video descriptors and renditions, the single download
// session with its stage enum, leftover temp file records, and the command and
// event messages exchanged between the UI and the orchestrator.
