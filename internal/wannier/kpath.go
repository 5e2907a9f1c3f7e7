package wannier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidDivisions is returned for a first-segment division count below 1
	ErrInvalidDivisions = errors.New("division count must be at least 1")
	// ErrNoSegments is returned for an empty path
	ErrNoSegments = errors.New("path has no segments")
	// ErrBadLattice is returned when the reciprocal lattice is not 3x3
	ErrBadLattice = errors.New("reciprocal lattice must be 3x3")
	// ErrDegeneratePath is returned when the reference segment has zero length
	ErrDegeneratePath = errors.New("first segment has zero length")
)

// Vec3 is a 3-component coordinate
type Vec3 [3]float64

// SymmetryPoint is a path endpoint in reciprocal space
type SymmetryPoint struct {
	Label      string
	Fractional Vec3
	// Cartesian is Fractional expressed with the reciprocal lattice vectors, 1/angstrom
	Cartesian Vec3
}

// Segment is a straight path piece between two symmetry points, in fractional coordinates
type Segment struct {
	StartLabel string
	EndLabel   string
	Start      Vec3
	End        Vec3
}

// Path is a k-point path rebuilt from its symmetry points.
// Counts[i] is the number of k-points listed for segment i; every segment
// excludes its terminal point except the last one, so the concatenation of
// KPoints visits each point once.
type Path struct {
	Total     int
	Counts    []int
	KPoints   [][]Vec3
	Endpoints [][2]SymmetryPoint
	// DeltaK is the reference spacing in 1/angstrom
	DeltaK float64

	divisions []int
}

// ReconstructPath derives per-segment point counts and k-points assuming the
// spacing of the first segment holds along the whole path. Counts are rounded
// half to even.
func ReconstructPath(segments []Segment, reciprocal mat.Matrix, firstDivisions int) (*Path, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if firstDivisions < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDivisions, firstDivisions)
	}
	if reciprocal == nil {
		return nil, ErrBadLattice
	}
	if r, c := reciprocal.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrBadLattice, r, c)
	}

	endpoints := make([][2]SymmetryPoint, len(segments))
	for i, s := range segments {
		endpoints[i] = [2]SymmetryPoint{
			{Label: s.StartLabel, Fractional: s.Start, Cartesian: toCartesian(s.Start, reciprocal)},
			{Label: s.EndLabel, Fractional: s.End, Cartesian: toCartesian(s.End, reciprocal)},
		}
	}

	deltaK := segmentLength(endpoints[0]) / float64(firstDivisions)
	if deltaK == 0 {
		return nil, ErrDegeneratePath
	}

	divisions := make([]int, len(segments))
	for i, ep := range endpoints {
		divisions[i] = int(math.RoundToEven(segmentLength(ep) / deltaK))
	}

	p := &Path{Endpoints: endpoints, DeltaK: deltaK}
	p.build(divisions)
	return p, nil
}

// WithLastAdjusted returns a copy of the path whose last segment has delta
// more (or fewer) points. The segment must keep at least one division.
func (p *Path) WithLastAdjusted(delta int) (*Path, error) {
	divisions := append([]int(nil), p.divisions...)
	last := len(divisions) - 1
	divisions[last] += delta
	if divisions[last] < 1 {
		return nil, fmt.Errorf("%w: last segment would have %d divisions", ErrInvalidDivisions, divisions[last])
	}

	out := &Path{Endpoints: p.Endpoints, DeltaK: p.DeltaK}
	out.build(divisions)
	return out, nil
}

// Points returns all k-points of the path in order
func (p *Path) Points() []Vec3 {
	out := make([]Vec3, 0, p.Total)
	for _, seg := range p.KPoints {
		out = append(out, seg...)
	}
	return out
}

func (p *Path) build(divisions []int) {
	p.divisions = divisions
	p.Counts = make([]int, len(divisions))
	p.KPoints = make([][]Vec3, len(divisions))

	for n, div := range divisions {
		start := p.Endpoints[n][0].Fractional
		end := p.Endpoints[n][1].Fractional
		points := make([]Vec3, 0, div+1)
		for i := 0; i < div; i++ {
			t := float64(i) / float64(div)
			var k Vec3
			for d := 0; d < 3; d++ {
				k[d] = start[d] + t*(end[d]-start[d])
			}
			points = append(points, k)
		}
		p.KPoints[n] = points
		p.Counts[n] = div
	}

	last := len(divisions) - 1
	p.KPoints[last] = append(p.KPoints[last], p.Endpoints[last][1].Fractional)
	p.Counts[last]++

	p.Total = 0
	for _, c := range p.Counts {
		p.Total += c
	}
}

// toCartesian computes sum_i frac_i * b_i where b_i are the rows of reciprocal
func toCartesian(frac Vec3, reciprocal mat.Matrix) Vec3 {
	var v mat.VecDense
	v.MulVec(reciprocal.T(), mat.NewVecDense(3, []float64{frac[0], frac[1], frac[2]}))
	return Vec3{v.AtVec(0), v.AtVec(1), v.AtVec(2)}
}

func segmentLength(ep [2]SymmetryPoint) float64 {
	return floats.Distance(ep[1].Cartesian[:], ep[0].Cartesian[:], 2)
}
