package wannier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	q "github.com/Hanaasagi/w90parse/pkg/quantity"
	"github.com/Hanaasagi/w90parse/pkg/units"
)

// siteTolerance is how close (angstrom) a projection centre must be to an atom
const siteTolerance = 1e-3

var (
	// ErrUnresolvedSite is returned when a projection centre matches no atom
	ErrUnresolvedSite = errors.New("projection site matches no atom")
	// ErrUnknownOrbital is returned for an l/mr pair outside the orbital table
	ErrUnknownOrbital = errors.New("unknown angular momentum")
)

type angularMomentum struct{ l, mr int }

var orbitalNames = map[angularMomentum]string{
	{0, 1}: "s",
	{1, 1}: "px", {1, 2}: "py", {1, 3}: "pz",
	{2, 1}: "dz2", {2, 2}: "dxz", {2, 3}: "dyz", {2, 4}: "dx2-y2", {2, 5}: "dxy",
	{3, 1}: "fz3", {3, 2}: "fxz2", {3, 3}: "fyz2", {3, 4}: "fz(x2-y2)",
	{3, 5}: "fxyz", {3, 6}: "fx(x2-3y2)", {3, 7}: "fy(3x2-y2)",
	{-1, 1}: "sp-1", {-1, 2}: "sp-2",
	{-2, 1}: "sp2-1", {-2, 2}: "sp2-2", {-2, 3}: "sp2-3",
	{-3, 1}: "sp3-1", {-3, 2}: "sp3-2", {-3, 3}: "sp3-3", {-3, 4}: "sp3-4",
	{-4, 1}: "sp3d-1", {-4, 2}: "sp3d-2", {-4, 3}: "sp3d-3", {-4, 4}: "sp3d-4", {-4, 5}: "sp3d-5",
	{-5, 1}: "sp3d2-1", {-5, 2}: "sp3d2-2", {-5, 3}: "sp3d2-3",
	{-5, 4}: "sp3d2-4", {-5, 5}: "sp3d2-5", {-5, 6}: "sp3d2-6",
}

// OrbitalName returns the label of the real orbital with quantum numbers l and mr
func OrbitalName(l, mr int) (string, bool) {
	name, ok := orbitalNames[angularMomentum{l, mr}]
	return name, ok
}

// Projection is one line of the projections block
type Projection struct {
	// Site is the centre as written: an atom label, f=x,y,z or c=x,y,z
	Site        string
	Label       string
	AtomIndices []int
	Orbitals    []string
}

// Projections are the initial guesses declared in the .win input
type Projections struct {
	// Units is the length unit cartesian centres are written in
	Units   string
	Random  bool
	Entries []Projection
}

// ParseProjections reads the projections block of a .win input and resolves
// every centre against the atoms of sys. A file without the block yields nil.
// Entries that cannot be resolved are kept with the error listed.
func ParseProjections(text string, sys *System) (*Projections, []error) {
	res := q.Extract(text, WinRules)
	block, ok := res.Sub(qProjections)
	if !ok {
		return nil, nil
	}

	p := &Projections{Units: units.Angstrom}
	if u, ok := block.Text(qProjUnits); ok && strings.EqualFold(u, "bohr") {
		p.Units = "bohr"
	}
	if block.Has(qProjRandom) {
		p.Random = true
		return p, nil
	}

	var errs []error
	for _, m := range block.Matches(qProjEntries) {
		if len(m.Groups) != 2 {
			continue
		}
		entry := Projection{Site: m.Groups[0]}

		label, err := resolveSite(entry.Site, p.Units, sys)
		if err != nil {
			errs = append(errs, fmt.Errorf("site %q: %w", entry.Site, err))
		} else {
			entry.Label = label
			for i, l := range sys.Labels {
				if strings.EqualFold(l, label) {
					entry.AtomIndices = append(entry.AtomIndices, i)
				}
			}
		}

		orbitals, err := parseOrbitals(m.Groups[1])
		if err != nil {
			errs = append(errs, fmt.Errorf("site %q: %w", entry.Site, err))
		}
		entry.Orbitals = orbitals
		p.Entries = append(p.Entries, entry)
	}
	return p, errs
}

// resolveSite returns the atom label a projection centre refers to
func resolveSite(site, unit string, sys *System) (string, error) {
	var (
		frac bool
		raw  string
	)
	switch {
	case strings.HasPrefix(site, "f="):
		frac, raw = true, strings.TrimPrefix(site, "f=")
	case strings.HasPrefix(site, "c="):
		raw = strings.TrimPrefix(site, "c=")
	default:
		return site, nil
	}

	coords, err := parseTriple(raw)
	if err != nil {
		return "", err
	}

	var cart []float64
	if frac {
		if sys.Lattice == nil {
			return "", ErrNoLattice
		}
		var v mat.VecDense
		v.MulVec(sys.Lattice.T(), mat.NewVecDense(3, coords))
		cart = v.RawVector().Data
	} else if cart, err = units.ConvertAll(coords, unit, units.Angstrom); err != nil {
		return "", err
	}

	for i, pos := range sys.Positions {
		if floats.EqualApprox(cart, pos[:], siteTolerance) {
			return sys.Labels[i], nil
		}
	}
	return "", ErrUnresolvedSite
}

func parseTriple(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("want 3 coordinates, got %q", s)
	}
	out := make([]float64, 3)
	for i, part := range parts {
		v, err := q.ParseFloat(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseOrbitals reads the orbital field of a projection line: a ';'
// separated list of names or l=,mr= quantum numbers. Fields after the first
// ':' (axes, radial parts) are ignored.
func parseOrbitals(field string) ([]string, error) {
	field, _, _ = strings.Cut(field, ":")

	var (
		names []string
		errs  []error
	)
	for _, orb := range strings.Split(field, ";") {
		orb = strings.TrimSpace(orb)
		if orb == "" {
			continue
		}
		if !strings.HasPrefix(orb, "l=") {
			names = append(names, orb)
			continue
		}
		resolved, err := orbitalsFromQuantumNumbers(orb)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		names = append(names, resolved...)
	}
	return names, errors.Join(errs...)
}

// orbitalsFromQuantumNumbers expands "l=2" to every mr of l, or
// "l=2,mr=1,3" to the listed ones
func orbitalsFromQuantumNumbers(orb string) ([]string, error) {
	lPart, mrPart, hasMR := strings.Cut(strings.TrimPrefix(orb, "l="), ",mr=")
	l, err := strconv.Atoi(strings.TrimSpace(lPart))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrbital, orb)
	}

	var names []string
	if !hasMR {
		for mr := 1; ; mr++ {
			name, ok := OrbitalName(l, mr)
			if !ok {
				break
			}
			names = append(names, name)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOrbital, orb)
		}
		return names, nil
	}

	for _, tok := range strings.Split(mrPart, ",") {
		mr, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOrbital, orb)
		}
		name, ok := OrbitalName(l, mr)
		if !ok {
			return nil, fmt.Errorf("%w: l=%d mr=%d", ErrUnknownOrbital, l, mr)
		}
		names = append(names, name)
	}
	return names, nil
}
