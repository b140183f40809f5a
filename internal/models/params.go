package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedMode = errors.New("unsupported mode")
	ErrParameterRange  = errors.New("parameter out of range")
)

// Mode selects the detail-recovery algorithm.
type Mode string

const (
	ModeNeutral  Mode = "neutral"
	ModeCLAHE    Mode = "clahe"
	ModeRetinex  Mode = "retinex"
	ModeAdaptive Mode = "adaptive"
	ModeWavelet  Mode = "wavelet"
	ModeGradient Mode = "gradient"
)

// Modes lists every supported mode in declaration order.
func Modes() []Mode {
	return []Mode{ModeNeutral, ModeCLAHE, ModeRetinex, ModeAdaptive, ModeWavelet, ModeGradient}
}

func (m Mode) Valid() bool {
	switch m {
	case ModeNeutral, ModeCLAHE, ModeRetinex, ModeAdaptive, ModeWavelet, ModeGradient:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// ParseMode is case-insensitive and never falls back to a default.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
	return m, nil
}

// Params is the read-only parameter set of one enhancement run.
type Params struct {
	Mode      Mode    `yaml:"mode"`
	Intensity float64 `yaml:"intensity"`
	Sharpen   float64 `yaml:"sharpen"`
	Edge      float64 `yaml:"edge"`
	Contrast  float64 `yaml:"contrast"`
}

func DefaultParams() Params {
	return Params{
		Mode:      ModeCLAHE,
		Intensity: 4.5,
		Sharpen:   1.0,
		Edge:      0.4,
		Contrast:  1.0,
	}
}

// ParameterRange is the inclusive domain of a numeric parameter.
type ParameterRange struct {
	Min float64
	Max float64
}

func (r ParameterRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var Ranges = map[string]ParameterRange{
	"intensity": {Min: 0, Max: 10},
	"sharpen":   {Min: 0, Max: 3},
	"edge":      {Min: 0, Max: 1},
	"contrast":  {Min: 0.5, Max: 2.0},
}

// Validate enforces the mode enum and the numeric domains. NaN fails every
// range check.
func (p Params) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedMode, string(p.Mode))
	}

	values := []struct {
		name  string
		value float64
	}{
		{"intensity", p.Intensity},
		{"sharpen", p.Sharpen},
		{"edge", p.Edge},
		{"contrast", p.Contrast},
	}

	for _, v := range values {
		r := Ranges[v.name]
		if !r.Contains(v.value) {
			return fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrParameterRange, v.name, v.value, r.Min, r.Max)
		}
	}

	return nil
}

// Fields renders the parameter set for structured logging.
func (p Params) Fields() map[string]interface{} {
	return map[string]interface{}{
		"mode":      string(p.Mode),
		"intensity": p.Intensity,
		"sharpen":   p.Sharpen,
		"edge":      p.Edge,
		"contrast":  p.Contrast,
	}
}
