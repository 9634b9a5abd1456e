package effect

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// None is the descriptor keyword for the identity effect.
const None = "none"

// ErrSyntax is the cause of every descriptor parse failure.
var ErrSyntax = errors.New("invalid effect descriptor")

type primitive struct {
	build func(amount float64) Matrix
	clamp bool // amounts above 1 are treated as 1
	angle bool
}

var primitives = map[string]primitive{
	"grayscale":  {build: grayscaleMatrix, clamp: true},
	"sepia":      {build: sepiaMatrix, clamp: true},
	"invert":     {build: invertMatrix, clamp: true},
	"opacity":    {build: opacityMatrix, clamp: true},
	"saturate":   {build: saturateMatrix},
	"brightness": {build: brightnessMatrix},
	"contrast":   {build: contrastMatrix},
	"hue-rotate": {build: hueRotateMatrix, angle: true},
}

// Parse turns a descriptor into an Effect.
func Parse(descriptor string) (Effect, error) {
	s := strings.TrimSpace(descriptor)
	if s == "" {
		return Effect{}, errors.Wrap(ErrSyntax, "empty descriptor")
	}
	if strings.EqualFold(s, None) {
		return Identity, nil
	}

	var stages []Stage
	for s != "" {
		open := strings.IndexByte(s, '(')
		if open <= 0 {
			return Effect{}, errors.Wrapf(ErrSyntax, "expected function at %q", s)
		}
		closing := strings.IndexByte(s[open:], ')')
		if closing < 0 {
			return Effect{}, errors.Wrapf(ErrSyntax, "unterminated function at %q", s)
		}
		closing += open

		name := strings.ToLower(strings.TrimSpace(s[:open]))
		stage, err := parseStage(name, strings.TrimSpace(s[open+1:closing]))
		if err != nil {
			return Effect{}, err
		}
		stages = append(stages, stage)

		rest := s[closing+1:]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		if trimmed != "" && len(trimmed) == len(rest) {
			return Effect{}, errors.Wrapf(ErrSyntax, "missing separator before %q", trimmed)
		}
		s = trimmed
	}
	return Effect{stages: stages}, nil
}

// MustParse is like Parse but panics on error. Intended for static tables.
func MustParse(descriptor string) Effect {
	e, err := Parse(descriptor)
	if err != nil {
		panic(err)
	}
	return e
}

func parseStage(name, arg string) (Stage, error) {
	p, ok := primitives[name]
	if !ok {
		return Stage{}, errors.Wrapf(ErrSyntax, "unknown function %q", name)
	}

	var (
		amount float64
		err    error
	)
	switch {
	case p.angle:
		amount, err = parseAngle(arg)
	default:
		amount, err = parseAmount(arg)
	}
	if err != nil {
		return Stage{}, errors.Wrapf(err, "%s()", name)
	}
	if p.clamp && amount > 1 {
		amount = 1
	}
	return Stage{Name: name, Amount: amount, Matrix: p.build(amount)}, nil
}

// parseAmount accepts a non-negative number or percentage. Empty means 1.
func parseAmount(arg string) (float64, error) {
	if arg == "" {
		return 1, nil
	}
	scale := 1.0
	if strings.HasSuffix(arg, "%") {
		arg = strings.TrimSuffix(arg, "%")
		scale = 0.01
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrSyntax, "bad amount %q", arg)
	}
	if v < 0 {
		return 0, errors.Wrapf(ErrSyntax, "negative amount %q", arg)
	}
	return v * scale, nil
}

var angleUnits = []struct {
	suffix string
	toDeg  float64
}{
	{"grad", 0.9},
	{"turn", 360},
	{"deg", 1},
	{"rad", 180 / math.Pi},
}

// parseAngle returns degrees. Empty means 0; a unitless value must be 0.
func parseAngle(arg string) (float64, error) {
	if arg == "" {
		return 0, nil
	}
	for _, u := range angleUnits {
		if !strings.HasSuffix(arg, u.suffix) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(arg, u.suffix), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errors.Wrapf(ErrSyntax, "bad angle %q", arg)
		}
		return v * u.toDeg, nil
	}
	if v, err := strconv.ParseFloat(arg, 64); err == nil && v == 0 {
		return 0, nil
	}
	return 0, errors.Wrapf(ErrSyntax, "angle %q needs a unit", arg)
}

func formatAmount(name string, v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if primitives[name].angle {
		return s + "deg"
	}
	return s
}
