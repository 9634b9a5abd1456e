// Package effect parses filter-effect descriptors and applies them to pixels.
//
// A descriptor is a whitespace-separated list of primitive functions in the
// style of the CSS filter property, e.g.
//
//	sepia(0.6) contrast(1.1) brightness(0.9) saturate(1.2)
//
// Every primitive is a 5x4 color matrix over non-premultiplied RGBA in [0,1].
// Stages run left to right and each result is clamped before the next stage.
package effect

import (
	"image/color"
	"strings"
)

// Matrix is a row-major 5x4 color matrix:
//
//	R' = m[0]*R  + m[1]*G  + m[2]*B  + m[3]*A  + m[4]
//	G' = m[5]*R  + m[6]*G  + m[7]*B  + m[8]*A  + m[9]
//	B' = m[10]*R + m[11]*G + m[12]*B + m[13]*A + m[14]
//	A' = m[15]*R + m[16]*G + m[17]*B + m[18]*A + m[19]
//
// Channels and offsets are in the [0,1] range.
type Matrix [20]float64

// IdentityMatrix leaves every channel unchanged.
var IdentityMatrix = Matrix{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// Stage is one primitive of a descriptor.
type Stage struct {
	Name   string
	Amount float64 // hue-rotate: degrees
	Matrix Matrix
}

func (s Stage) String() string {
	return s.Name + "(" + formatAmount(s.Name, s.Amount) + ")"
}

// Effect is an immutable, parsed descriptor.
type Effect struct {
	stages []Stage
}

// Identity is the "none" effect.
var Identity = Effect{}

// IsIdentity reports whether the effect has no stages.
func (e Effect) IsIdentity() bool {
	return len(e.stages) == 0
}

// Stages returns a copy of the effect's stages in application order.
func (e Effect) Stages() []Stage {
	out := make([]Stage, len(e.stages))
	copy(out, e.stages)
	return out
}

// String returns the normalized descriptor.
func (e Effect) String() string {
	if e.IsIdentity() {
		return None
	}
	parts := make([]string, len(e.stages))
	for i, s := range e.stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// Apply runs every stage over a single pixel.
func (e Effect) Apply(c color.NRGBA) color.NRGBA {
	if e.IsIdentity() {
		return c
	}
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255
	a := float64(c.A) / 255
	for i := range e.stages {
		r, g, b, a = e.stages[i].Matrix.transform(r, g, b, a)
	}
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: to8(a)}
}

func (m *Matrix) transform(r, g, b, a float64) (float64, float64, float64, float64) {
	return clamp01(m[0]*r + m[1]*g + m[2]*b + m[3]*a + m[4]),
		clamp01(m[5]*r + m[6]*g + m[7]*b + m[8]*a + m[9]),
		clamp01(m[10]*r + m[11]*g + m[12]*b + m[13]*a + m[14]),
		clamp01(m[15]*r + m[16]*g + m[17]*b + m[18]*a + m[19])
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func to8(v float64) uint8 {
	return uint8(v*255 + 0.5)
}
