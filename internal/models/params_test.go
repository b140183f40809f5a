package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParamsAreValid(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, ModeCLAHE, p.Mode)
	assert.Equal(t, 4.5, p.Intensity)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(" " + string(m) + " ")
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMode("Retinex")
	require.NoError(t, err)
	assert.Equal(t, ModeRetinex, got)

	_, err = ParseMode("sepia")
	require.ErrorIs(t, err, ErrUnsupportedMode)

	_, err = ParseMode("")
	require.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"intensity high", func(p *Params) { p.Intensity = 10.01 }},
		{"intensity negative", func(p *Params) { p.Intensity = -0.1 }},
		{"sharpen high", func(p *Params) { p.Sharpen = 3.5 }},
		{"edge high", func(p *Params) { p.Edge = 1.1 }},
		{"contrast low", func(p *Params) { p.Contrast = 0.49 }},
		{"contrast high", func(p *Params) { p.Contrast = 2.01 }},
		{"nan", func(p *Params) { p.Intensity = math.NaN() }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrParameterRange)
		})
	}
}

func TestValidateBoundsInclusive(t *testing.T) {
	p := Params{Mode: ModeNeutral, Intensity: 10, Sharpen: 3, Edge: 1, Contrast: 0.5}
	assert.NoError(t, p.Validate())

	p = Params{Mode: ModeGradient, Intensity: 0, Sharpen: 0, Edge: 0, Contrast: 2.0}
	assert.NoError(t, p.Validate())
}

func TestValidateMode(t *testing.T) {
	p := DefaultParams()
	p.Mode = "thermal"
	assert.ErrorIs(t, p.Validate(), ErrUnsupportedMode)
}
