package wannier

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// SpinChannels is the number of spin channels reconstructed for band
// structures. Spin-polarized band files are not supported: a single
// channel is always assumed.
const SpinChannels = 1

// Occupation values of the zero-temperature rule
const (
	OccupiedWeight   = 2.0
	UnoccupiedWeight = 0.0
)

// ErrPathMismatch is returned when the reconstructed path length disagrees with the band grid
var ErrPathMismatch = errors.New("k-path length does not match band grid")

// BandSegment holds the energies along one path segment.
// Energies and Occupations have shape (SpinChannels, PointCount, bands).
type BandSegment struct {
	StartLabel  string
	EndLabel    string
	PointCount  int
	KPoints     []Vec3
	Energies    *Tensor3
	Occupations *Tensor3
}

// BandStructure is the electronic band structure along a k-path
type BandStructure struct {
	FermiLevel float64 // eV
	// ReciprocalCell rows are the reciprocal lattice vectors in 1/angstrom
	ReciprocalCell *mat.Dense
	NBands         int
	Segments       []BandSegment
}

// AssembleBands reshapes the flat energy column (band-major, as written in
// band data files) into per-segment tensors and assigns occupations.
// Nothing is returned when the column does not factor into the path.
func AssembleBands(flat []float64, path *Path, fermiEV float64) ([]BandSegment, error) {
	if path == nil || path.Total <= 0 {
		return nil, fmt.Errorf("%w: empty k-path", ErrReshape)
	}

	nBands := int(math.RoundToEven(float64(len(flat)) / float64(path.Total)))
	if nBands < 1 || nBands*path.Total != len(flat) {
		return nil, fmt.Errorf("%w: %d energies over %d k-points", ErrReshape, len(flat), path.Total)
	}

	sum := 0
	for _, c := range path.Counts {
		sum += c
	}
	if sum != path.Total {
		return nil, fmt.Errorf("%w: segment counts sum to %d, path has %d points", ErrReshape, sum, path.Total)
	}

	// (bands, k) as written, viewed as (k, bands)
	bands := mat.NewDense(nBands, path.Total, flat).T()

	segments := make([]BandSegment, 0, len(path.Counts))
	first := 0
	for n, count := range path.Counts {
		seg := BandSegment{
			StartLabel: path.Endpoints[n][0].Label,
			EndLabel:   path.Endpoints[n][1].Label,
			PointCount: count,
			KPoints:    path.KPoints[n],
		}
		if count > 0 {
			var err error
			if seg.Energies, err = NewTensor3(SpinChannels, count, nBands); err != nil {
				return nil, fmt.Errorf("segment %d: %w", n, err)
			}
			if seg.Occupations, err = NewTensor3(SpinChannels, count, nBands); err != nil {
				return nil, fmt.Errorf("segment %d: %w", n, err)
			}
			for s := 0; s < SpinChannels; s++ {
				for k := 0; k < count; k++ {
					for b := 0; b < nBands; b++ {
						e := bands.At(first+k, b)
						seg.Energies.Set(s, k, b, e)
						seg.Occupations.Set(s, k, b, occupation(e, fermiEV))
					}
				}
			}
		}
		segments = append(segments, seg)
		first += count
	}
	return segments, nil
}

// occupation applies the zero-temperature rule; a level exactly at the Fermi energy is empty
func occupation(energy, fermi float64) float64 {
	if energy < fermi {
		return OccupiedWeight
	}
	return UnoccupiedWeight
}

// MismatchPolicy decides what happens when the reconstructed path length
// disagrees with the number of k-points in the band grid
type MismatchPolicy int

const (
	// MismatchFail drops the band structure
	MismatchFail MismatchPolicy = iota
	// MismatchAdjustLast moves the difference onto the last segment
	MismatchAdjustLast
)

func (p MismatchPolicy) String() string {
	if p == MismatchAdjustLast {
		return "adjust-last"
	}
	return "fail"
}

// ParseMismatchPolicy reads a policy name as used in configuration files
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return MismatchFail, nil
	case "adjust-last", "adjust_last":
		return MismatchAdjustLast, nil
	default:
		return MismatchFail, fmt.Errorf("unknown path mismatch policy %q", s)
	}
}

// ReconcilePath compares path with the k-point count of the band grid.
// It returns the path to use, whether it was adjusted, and ErrPathMismatch
// when the policy forbids using it.
func ReconcilePath(path *Path, gridPoints int, policy MismatchPolicy) (*Path, bool, error) {
	if gridPoints <= 0 || gridPoints == path.Total {
		return path, false, nil
	}
	if policy != MismatchAdjustLast {
		return nil, false, fmt.Errorf("%w: path has %d points, grid has %d", ErrPathMismatch, path.Total, gridPoints)
	}
	adjusted, err := path.WithLastAdjusted(gridPoints - path.Total)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrPathMismatch, err)
	}
	return adjusted, true, nil
}

// GridPointCount infers the number of k-points per band from a band table.
// Bands are written as blocks separated by blank lines, or recognized by the
// path coordinate in the first column restarting.
func GridPointCount(pathCoordinate []float64, blocks []int) (int, bool) {
	if len(blocks) >= 2 && blocks[1] > blocks[0] {
		return blocks[1] - blocks[0], true
	}
	for i := 1; i < len(pathCoordinate); i++ {
		if pathCoordinate[i] < pathCoordinate[i-1] {
			return i, true
		}
	}
	return 0, false
}
