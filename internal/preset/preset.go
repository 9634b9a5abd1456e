// Package preset holds the fixed table of named filters.
package preset

import (
	"sort"

	"github.com/AnyUserName/imgfilter/internal/effect"
)

// None is the identity filter id.
const None = "none"

// Preset is a named filter and its effect descriptor.
type Preset struct {
	Name       string
	Descriptor string
	effect     effect.Effect
}

// Effect returns the parsed descriptor.
func (p Preset) Effect() effect.Effect { return p.effect }

// Built-in presets. Read-only after init.
var presets = map[string]Preset{
	None:      {Descriptor: effect.None},
	"vintage": {Descriptor: "sepia(0.6) contrast(1.1) brightness(0.9) saturate(1.2)"},
	"bw":      {Descriptor: "grayscale(100%)"},
	"sepia":   {Descriptor: "sepia(100%)"},
}

func init() {
	for name, p := range presets {
		p.Name = name
		p.effect = effect.MustParse(p.Descriptor)
		presets[name] = p
	}
}

// Lookup returns the effect for id. Unknown ids report false.
func Lookup(id string) (effect.Effect, bool) {
	p, ok := presets[id]
	if !ok {
		return effect.Effect{}, false
	}
	return p.effect, true
}

// Get returns the full preset for id.
func Get(id string) (Preset, bool) {
	p, ok := presets[id]
	return p, ok
}

// Descriptor returns the descriptor string for id.
func Descriptor(id string) (string, bool) {
	p, ok := presets[id]
	return p.Descriptor, ok
}

// Names returns all preset ids, sorted with "none" first.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		if name != None {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{None}, names...)
}

// All returns every preset in Names order.
func All() []Preset {
	names := Names()
	out := make([]Preset, len(names))
	for i, n := range names {
		out[i] = presets[n]
	}
	return out
}
