package wannier

import (
	"errors"
	"fmt"
)

// HoppingFields is the number of values per hopping entry: three lattice
// translation indices, two orbital indices, real and imaginary amplitude.
const HoppingFields = 7

// onsiteRealField is the field holding the real hopping amplitude
const onsiteRealField = 5

var (
	// ErrNoDegeneracy is returned when the degeneracy block lacks the point count
	ErrNoDegeneracy = errors.New("degeneracy block too short")
	// ErrShortDegeneracy is returned when fewer factors than Wigner-Seitz points were read
	ErrShortDegeneracy = errors.New("fewer degeneracy factors than Wigner-Seitz points")
)

// HoppingMatrix is the real-space tight-binding Hamiltonian
type HoppingMatrix struct {
	NOrbitals          int
	NWignerSeitzPoints int
	DegeneracyFactors  []int
	// Value has shape (NWignerSeitzPoints, NOrbitals^2, HoppingFields); nil when
	// the raw values did not factor into that shape.
	Value *Tensor3
}

// AssembleHoppings builds the hopping matrix from the degeneracy block
// (header token, point count, factors...) and the flat hopping values.
// The matrix is returned even when the values cannot be reshaped; in that
// case Value is nil and the error wraps ErrReshape. The Fermi level proxy is
// nil whenever it cannot be derived.
func AssembleHoppings(degeneracy []int, flat []float64, nOrbitals int) (*HoppingMatrix, *float64, error) {
	if len(degeneracy) < 2 {
		return nil, nil, fmt.Errorf("%w: %d values", ErrNoDegeneracy, len(degeneracy))
	}
	if degeneracy[1] <= 0 {
		return nil, nil, fmt.Errorf("%w: point count %d", ErrNoDegeneracy, degeneracy[1])
	}

	h := &HoppingMatrix{
		NOrbitals:          nOrbitals,
		NWignerSeitzPoints: degeneracy[1],
	}

	var errs []error
	factors := degeneracy[2:]
	switch {
	case len(factors) > h.NWignerSeitzPoints:
		factors = factors[:h.NWignerSeitzPoints]
	case len(factors) < h.NWignerSeitzPoints:
		errs = append(errs, fmt.Errorf("%w: %d of %d", ErrShortDegeneracy, len(factors), h.NWignerSeitzPoints))
	}
	h.DegeneracyFactors = append([]int(nil), factors...)

	value, err := Reshape3(flat, h.NWignerSeitzPoints, nOrbitals*nOrbitals, HoppingFields)
	if err != nil {
		errs = append(errs, fmt.Errorf("hopping values: %w", err))
	}
	h.Value = value

	var fermi *float64
	if v, ok := FermiFromHoppings(h); ok {
		fermi = &v
	}
	return h, fermi, errors.Join(errs...)
}

// FermiFromHoppings estimates the Fermi level in eV as the real onsite
// amplitude of the first orbital pair at the central Wigner-Seitz point.
// This is a heuristic to use only when no better source exists.
func FermiFromHoppings(h *HoppingMatrix) (float64, bool) {
	if h == nil || h.Value == nil || h.NWignerSeitzPoints <= 0 {
		return 0, false
	}
	mid := h.NWignerSeitzPoints / 2
	return h.Value.Matrix(mid).At(0, onsiteRealField), true
}
