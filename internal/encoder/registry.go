package encoder

import (
	"fmt"
	"strings"
)

// Registry holds all available lossy encoders.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	return newRegistry(&JPEGEncoder{}, NewWebPEncoder(), NewAVIFEncoder())
}

func newRegistry(all ...Encoder) *Registry {
	r := &Registry{encoders: make(map[string]Encoder)}
	for _, enc := range all {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}
	return r
}

// Get returns an encoder for the given format, or nil if unavailable.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[normalize(format)]
}

// Resolve returns the encoder for format, falling back to JPEG when the
// format is unknown or its tool is missing. ok reports whether the request
// was honored.
func (r *Registry) Resolve(format string) (enc Encoder, ok bool) {
	if enc := r.Get(format); enc != nil {
		return enc, true
	}
	if enc := r.encoders[DefaultFormat]; enc != nil {
		return enc, format == ""
	}
	return &JPEGEncoder{}, false
}

// Available returns all available format names in priority order.
func (r *Registry) Available() []string {
	var result []string
	for _, f := range []string{"jpeg", "webp", "avif"} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}

func normalize(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "jpg" {
		f = "jpeg"
	}
	return f
}
