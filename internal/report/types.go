// Package report describes the outcome of one CLI filter run as JSON.
package report

// Report is written by "imgfilter apply --report".
type Report struct {
	Version     int    `json:"version"`
	GeneratedAt string `json:"generated_at"`
	Filter      string `json:"filter"`
	Descriptor  string `json:"descriptor,omitempty"` // empty for none/unknown filters
	Applied     bool   `json:"applied"`
	Fallback    string `json:"fallback,omitempty"` // failure cause when a filter was requested but not applied
	Input       Image  `json:"input"`
	Output      Image  `json:"output"`
}

// Image holds metadata about one encoded image.
type Image struct {
	MediaType string `json:"media_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Size      int64  `json:"size"`   // decoded payload bytes
	Digest    string `json:"digest"` // first 16 hex chars of xxhash64 of the data URL
}

// SupportedVersion is the current schema version.
const SupportedVersion = 1
