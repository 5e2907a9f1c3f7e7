// Package units converts scalar physical quantities between the unit
// symbols found in simulation output. Conversion is a pure function and
// happens only where values leave the extraction layer.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned for symbols without a registered scale
var ErrUnknownUnit = errors.New("unknown unit")

// ErrIncompatible is returned when converting across dimensions
var ErrIncompatible = errors.New("incompatible units")

// Dimension groups units that convert into each other
type Dimension string

const (
	Length        Dimension = "length"
	InverseLength Dimension = "inverse_length"
	Energy        Dimension = "energy"
	InverseEnergy Dimension = "inverse_energy"
)

// Canonical symbols
const (
	Angstrom        = "angstrom"
	InverseAngstrom = "1/angstrom"
	ElectronVolt    = "eV"
	InverseEV       = "1/eV"
)

type unit struct {
	dim Dimension
	// scale to the canonical unit of the dimension (angstrom, eV)
	scale float64
}

const (
	bohrInAngstrom = 0.529177210903
	hartreeInEV    = 27.211386245988
)

var registry = map[string]unit{
	"angstrom": {Length, 1},
	"ang":      {Length, 1},
	"a":        {Length, 1},
	"bohr":     {Length, bohrInAngstrom},
	"nm":       {Length, 10},
	"m":        {Length, 1e10},

	"1/angstrom": {InverseLength, 1},
	"ang^-1":     {InverseLength, 1},
	"1/bohr":     {InverseLength, 1 / bohrInAngstrom},
	"bohr^-1":    {InverseLength, 1 / bohrInAngstrom},

	"ev":      {Energy, 1},
	"mev":     {Energy, 1e-3},
	"hartree": {Energy, hartreeInEV},
	"ha":      {Energy, hartreeInEV},
	"ry":      {Energy, hartreeInEV / 2},
	"rydberg": {Energy, hartreeInEV / 2},

	"1/ev":      {InverseEnergy, 1},
	"ev^-1":     {InverseEnergy, 1},
	"1/hartree": {InverseEnergy, 1 / hartreeInEV},
}

func lookup(symbol string) (unit, error) {
	u, ok := registry[strings.ToLower(strings.TrimSpace(symbol))]
	if !ok {
		return unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, symbol)
	}
	return u, nil
}

// Convert returns value expressed in to, given it is expressed in from
func Convert(value float64, from, to string) (float64, error) {
	f, err := lookup(from)
	if err != nil {
		return 0, err
	}
	t, err := lookup(to)
	if err != nil {
		return 0, err
	}
	if f.dim != t.dim {
		return 0, fmt.Errorf("%w: %s (%s) to %s (%s)", ErrIncompatible, from, f.dim, to, t.dim)
	}
	return value * f.scale / t.scale, nil
}

// ConvertAll returns a converted copy of values
func ConvertAll(values []float64, from, to string) ([]float64, error) {
	f, err := Convert(1, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * f
	}
	return out, nil
}
