package wannier

import (
	"errors"
	"fmt"
	"math"

	"github.com/Masterminds/semver/v3"
	"gonum.org/v1/gonum/mat"

	q "github.com/Hanaasagi/w90parse/pkg/quantity"
	"github.com/Hanaasagi/w90parse/pkg/units"
)

// ProgramName is the simulation code this package reads
const ProgramName = "Wannier90"

var (
	// ErrNoStructure is returned when the output log has no atomic structure block
	ErrNoStructure = errors.New("no structure block")
	// ErrNoLattice is returned when fewer than three lattice vectors were found
	ErrNoLattice = errors.New("lattice vectors not found")
)

// Detect reports whether text is a Wannier90 output log
func Detect(text string) bool {
	re, err := q.Compile(bannerPattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// Program identifies the code that wrote the output
type Program struct {
	Name    string
	Version string
	// SemVer is nil when Version is not a valid semantic version
	SemVer *semver.Version
}

// System is the simulation cell and its atoms. Lengths are in angstrom.
type System struct {
	// Lattice rows are the real-space lattice vectors
	Lattice *mat.Dense
	// Reciprocal rows are the reciprocal lattice vectors in 1/angstrom
	Reciprocal *mat.Dense
	Periodic   [3]bool
	Labels     []string
	Positions  []Vec3
}

// NAtoms returns the number of atoms in the cell
func (s *System) NAtoms() int {
	return len(s.Labels)
}

// EnergyWindow is a closed energy interval in eV
type EnergyWindow struct {
	Min float64
	Max float64
}

// KMesh is the uniform k-point grid of the Wannierisation
type KMesh struct {
	Grid    [3]int
	NPoints int
	// Points rows are fractional k-points; nil when the log does not list them
	Points *mat.Dense
}

// Method holds the Wannierisation parameters
type Method struct {
	NOrbitals            int
	NBlochBands          int
	NIterations          int
	IsMaximallyLocalized bool
	ConvergenceTolerance float64
	OuterWindow          *EnergyWindow
	InnerWindow          *EnergyWindow
	KMesh                *KMesh
}

func buildProgram(res *q.Result) Program {
	p := Program{Name: ProgramName}
	if v, ok := res.Text(qVersion); ok {
		p.Version = v
		if sv, err := semver.NewVersion(v); err == nil {
			p.SemVer = sv
		}
	}
	return p
}

// buildSystem converts the extracted structure quantities. Without a
// structure block nothing is returned.
func buildSystem(res *q.Result) (*System, error) {
	structure, ok := res.Sub(qStructure)
	if !ok {
		return nil, ErrNoStructure
	}

	lattice, err := lastVectors(res, qLattice, qLatticeUnit, units.Angstrom)
	if err != nil {
		return nil, fmt.Errorf("lattice: %w", err)
	}
	sys := &System{Lattice: lattice}
	if lattice != nil {
		sys.Periodic = [3]bool{true, true, true}
	}

	reciprocal, err := lastVectors(res, qReciprocal, qReciprocalUnit, units.InverseAngstrom)
	if err != nil {
		return nil, fmt.Errorf("reciprocal lattice: %w", err)
	}
	if reciprocal == nil && lattice != nil {
		if reciprocal, err = reciprocalFromLattice(lattice); err != nil {
			return nil, fmt.Errorf("reciprocal lattice: %w", err)
		}
	}
	sys.Reciprocal = reciprocal

	sys.Labels = structure.Texts(qLabels)

	positions, ok := structure.Matrix(qPositions)
	if !ok {
		return nil, fmt.Errorf("%w: no atomic positions", ErrNoStructure)
	}
	rows, _ := positions.Dims()
	if rows != len(sys.Labels) {
		return nil, fmt.Errorf("%w: %d labels for %d positions", ErrNoStructure, len(sys.Labels), rows)
	}

	unit := units.Angstrom
	if u, ok := structure.Text(qPositionUnit); ok {
		unit = u
	}
	for i := 0; i < rows; i++ {
		v, err := units.ConvertAll(positions.RawRowView(i), unit, units.Angstrom)
		if err != nil {
			return nil, fmt.Errorf("positions: %w", err)
		}
		sys.Positions = append(sys.Positions, Vec3{v[0], v[1], v[2]})
	}
	return sys, nil
}

// lastVectors returns the last three rows of a vector table converted to
// target. A missing table yields nil without error.
func lastVectors(res *q.Result, name, unitName, target string) (*mat.Dense, error) {
	m, ok := res.Matrix(name)
	if !ok {
		return nil, nil
	}
	rows, cols := m.Dims()
	if rows < 3 || cols != 3 {
		return nil, fmt.Errorf("%w: %dx%d table", ErrNoLattice, rows, cols)
	}

	unit, ok := res.Text(unitName)
	if !ok {
		unit = target
	}
	out := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		v, err := units.ConvertAll(m.RawRowView(rows-3+i), unit, target)
		if err != nil {
			return nil, err
		}
		out.SetRow(i, v)
	}
	return out, nil
}

// reciprocalFromLattice returns 2*pi*(A^-1)^T, whose rows b_i satisfy a_i.b_j = 2*pi*delta_ij
func reciprocalFromLattice(lattice *mat.Dense) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(lattice); err != nil {
		return nil, err
	}
	var b mat.Dense
	b.Scale(2*math.Pi, inv.T())
	return &b, nil
}

// buildMethod converts the Wannierisation parameters. Problems with single
// fields are returned alongside the partially filled method.
func buildMethod(res *q.Result) (*Method, []error) {
	var errs []error
	m := &Method{}

	if v, ok := res.Int(qNWannier); ok {
		m.NOrbitals = v
	}
	if v, ok := res.Int(qNBands); ok {
		m.NBlochBands = v
	}
	if v, ok := res.Int(qNIter); ok {
		m.NIterations = v
		m.IsMaximallyLocalized = v > 1
	}
	if v, ok := res.Float(qConvTol); ok {
		m.ConvergenceTolerance = v
	}

	if windows, ok := res.Sub(qEnergyWindows); ok {
		var err error
		if m.OuterWindow, err = energyWindow(windows, qOuter); err != nil {
			errs = append(errs, fmt.Errorf("outer window: %w", err))
		}
		if m.InnerWindow, err = energyWindow(windows, qInner); err != nil {
			errs = append(errs, fmt.Errorf("inner window: %w", err))
		}
	}

	if mesh, ok := res.Sub(qKMesh); ok {
		m.KMesh = buildKMesh(mesh)
	}
	return m, errs
}

func energyWindow(res *q.Result, name string) (*EnergyWindow, error) {
	bounds, unit, ok := res.Vector(name)
	if !ok {
		return nil, nil
	}
	if len(bounds) != 2 {
		return nil, fmt.Errorf("want 2 bounds, got %d", len(bounds))
	}
	if unit == "" {
		unit = units.ElectronVolt
	}
	ev, err := units.ConvertAll(bounds, unit, units.ElectronVolt)
	if err != nil {
		return nil, err
	}
	return &EnergyWindow{Min: ev[0], Max: ev[1]}, nil
}

func buildKMesh(res *q.Result) *KMesh {
	k := &KMesh{}
	if grid, ok := res.Ints(qGrid); ok && len(grid) == 3 {
		k.Grid = [3]int{grid[0], grid[1], grid[2]}
	}
	if n, ok := res.Int(qNPoints); ok {
		k.NPoints = n
	}
	if points, ok := res.Matrix(qKPoints); ok {
		k.Points = points
	}
	return k
}

// pathSegments pairs the segment labels with their endpoint rows
func pathSegments(res *q.Result) ([]Segment, error) {
	points, ok := res.Matrix(qSegments)
	if !ok {
		return nil, ErrNoSegments
	}
	rows, cols := points.Dims()
	if cols != 6 {
		return nil, fmt.Errorf("segment rows have %d values, want 6", cols)
	}
	labels := res.Matches(qSegmentLabels)

	segments := make([]Segment, rows)
	for i := 0; i < rows; i++ {
		r := points.RawRowView(i)
		segments[i] = Segment{
			Start: Vec3{r[0], r[1], r[2]},
			End:   Vec3{r[3], r[4], r[5]},
		}
		if i < len(labels) && len(labels[i].Groups) == 2 {
			segments[i].StartLabel = labels[i].Groups[0]
			segments[i].EndLabel = labels[i].Groups[1]
		}
	}
	return segments, nil
}
