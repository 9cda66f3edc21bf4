// Package platform contains OS integration and filesystem glue: ffmpeg and
// ffprobe discovery, temp and final file naming in the destination directory,
// and opening folders in the system file manager.
package platform
