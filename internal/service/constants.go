package service

import "time"

const (
	// DefaultRenderWidth is the word wrap applied to terminal output.
	DefaultRenderWidth = 80
	// DefaultWatchDebounce coalesces bursts of file events into one change.
	DefaultWatchDebounce = 300 * time.Millisecond
)
