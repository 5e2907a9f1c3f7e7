package wannier

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when paired columns differ in length
var ErrLengthMismatch = errors.New("column lengths differ")

// DensityOfStates pairs an energy grid (eV) with density values (1/eV).
// Energies keep the order of the input file.
type DensityOfStates struct {
	Energies []float64
	Values   []float64
}

// AssembleDOS pairs the two columns index by index
func AssembleDOS(energies, values []float64) (*DensityOfStates, error) {
	if len(energies) != len(values) {
		return nil, fmt.Errorf("%w: %d energies, %d values", ErrLengthMismatch, len(energies), len(values))
	}
	return &DensityOfStates{
		Energies: append([]float64(nil), energies...),
		Values:   append([]float64(nil), values...),
	}, nil
}

// Len returns the number of energy points
func (d *DensityOfStates) Len() int {
	return len(d.Energies)
}
