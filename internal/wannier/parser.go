// Package wannier rebuilds structure, band path, band energies, density of
// states and the tight-binding hopping matrix of a Wannier90 run from its
// text output.
package wannier

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/Hanaasagi/w90parse/pkg/datagrid"
	q "github.com/Hanaasagi/w90parse/pkg/quantity"
)

// Options control one parse invocation
type Options struct {
	Logger       *slog.Logger
	PathMismatch MismatchPolicy
}

// FermiSource tells where the Fermi level of a result comes from
type FermiSource string

const (
	FermiFromHoppingMatrix FermiSource = "hoppings"
	FermiFallback          FermiSource = "fallback"
)

// Result is everything reconstructed from one file set. Sections that could
// not be built are nil and explained in Report.
type Result struct {
	Files       FileSet
	Program     Program
	System      *System
	Method      *Method
	Projections *Projections
	Hoppings    *HoppingMatrix
	FermiLevel  float64 // eV
	FermiSource FermiSource
	Bands       *BandStructure
	DOS         *DensityOfStates
	Report      *Report
}

// ParseFile discovers the companion files of wout and parses the set
func ParseFile(wout string, opts Options) (*Result, error) {
	fs, err := Discover(wout)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	return Parse(fs, opts)
}

// Parse reconstructs a file set. Only an unreadable output log is an error;
// every other problem is recorded in the result's report.
func Parse(fs FileSet, opts Options) (*Result, error) {
	raw, err := os.ReadFile(fs.Wout)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("wout", fs.Wout)
	logger.Debug("parsing file set", "band", len(fs.Band), "dos", len(fs.DOS), "hr", len(fs.Hr), "win", len(fs.Win))

	p := &pipeline{
		files:  fs,
		opts:   opts,
		report: newReport(logger),
		logger: logger,
		out:    &Result{Files: fs},
	}
	p.out.Report = p.report
	p.run(plainText(string(raw)))
	return p.out, nil
}

type pipeline struct {
	files  FileSet
	opts   Options
	report *Report
	logger *slog.Logger
	out    *Result
}

func (p *pipeline) run(text string) {
	if !Detect(text) {
		p.report.Warn(InvalidInput, SectionProgram, "no %s banner in %s", ProgramName, p.files.Wout)
	}

	meta := q.Extract(text, WoutRules)
	for _, name := range meta.FailureNames() {
		p.report.Warn(InvalidInput, SectionMetadata, "%s: %v", name, meta.Failures()[name])
	}

	p.out.Program = buildProgram(meta)
	p.system(meta)

	method, errs := buildMethod(meta)
	for _, err := range errs {
		p.report.Warn(InvalidInput, SectionMethod, "%v", err)
	}
	p.out.Method = method

	p.projections()
	p.hoppings()
	p.fermi()
	p.bands(meta)
	p.dos()
}

func (p *pipeline) system(meta *q.Result) {
	sys, err := buildSystem(meta)
	if err != nil {
		p.report.Error(MalformedStructure, SectionSystem, "%v", err)
		return
	}
	p.out.System = sys
}

func (p *pipeline) projections() {
	path, ok := p.companion(p.files.Win, SectionProjections, "input")
	if !ok {
		return
	}
	if p.out.System == nil {
		p.report.Error(MalformedStructure, SectionProjections, "no atomic structure to resolve projections against")
		return
	}

	text, err := os.ReadFile(path)
	if err != nil {
		p.report.Warn(MissingInput, SectionProjections, "%v", err)
		return
	}
	proj, errs := ParseProjections(string(text), p.out.System)
	for _, err := range errs {
		p.report.Warn(InvalidInput, SectionProjections, "%v", err)
	}
	p.out.Projections = proj
}

func (p *pipeline) hoppings() {
	path, ok := p.companion(p.files.Hr, SectionHoppings, "hopping")
	if !ok {
		return
	}
	text, err := os.ReadFile(path)
	if err != nil {
		p.report.Warn(MissingInput, SectionHoppings, "%v", err)
		return
	}

	res := q.Extract(string(text), HrRules)
	degeneracy, ok := res.Ints(qHrDegeneracy)
	if !ok {
		p.report.Warn(MalformedStructure, SectionHoppings, "no degeneracy block in %s", path)
		return
	}

	nOrbitals := 0
	if p.out.Method != nil {
		nOrbitals = p.out.Method.NOrbitals
	}
	if nOrbitals == 0 {
		nOrbitals = degeneracy[0]
	}

	var flat []float64
	if m, ok := res.Matrix(qHrHoppings); ok {
		flat = denseData(m)
	}

	h, fermi, err := AssembleHoppings(degeneracy, flat, nOrbitals)
	switch {
	case errors.Is(err, ErrNoDegeneracy):
		p.report.Warn(MalformedStructure, SectionHoppings, "%v", err)
	case err != nil:
		p.report.Warn(ReshapeMismatch, SectionHoppings, "%v", err)
	}
	p.out.Hoppings = h
	if fermi != nil {
		p.out.FermiLevel = *fermi
		p.out.FermiSource = FermiFromHoppingMatrix
	}
}

// fermi settles the fallback when no hopping matrix gave a value. Only the
// band and DOS sections consume it, so the warning is raised only for them.
func (p *pipeline) fermi() {
	if p.out.FermiSource != "" {
		return
	}
	p.out.FermiLevel = 0
	p.out.FermiSource = FermiFallback
	if len(p.files.Band) > 0 || len(p.files.DOS) > 0 {
		p.report.Warn(FermiUnavailable, SectionFermi, "Fermi level not found from hoppings, using 0 eV")
	}
}

func (p *pipeline) bands(meta *q.Result) {
	path, ok := p.companion(p.files.Band, SectionBands, "band structure")
	if !ok {
		return
	}
	if p.out.System == nil || p.out.System.Reciprocal == nil {
		p.report.Error(MalformedStructure, SectionBands, "no reciprocal lattice to rebuild the k-path")
		return
	}

	segments, err := pathSegments(meta)
	if err != nil {
		p.report.Error(MalformedStructure, SectionBands, "%v", err)
		return
	}
	if n, ok := meta.Int(qNSegments); ok && n != len(segments) {
		p.report.Warn(InvalidInput, SectionBands, "log declares %d path sections, found %d", n, len(segments))
	}
	divisions, ok := meta.Int(qFirstDivisions)
	if !ok {
		p.report.Error(MalformedStructure, SectionBands, "no division count for the first path section")
		return
	}

	kpath, err := ReconstructPath(segments, p.out.System.Reciprocal, divisions)
	if err != nil {
		p.report.Error(InvalidInput, SectionBands, "%v", err)
		return
	}

	table, err := datagrid.NewReader(datagrid.WithMinColumns(2)).ReadFile(path)
	if err != nil {
		p.report.Warn(ReshapeMismatch, SectionBands, "%v", err)
		return
	}

	if grid, ok := GridPointCount(table.Column(0), table.Blocks); ok {
		adjusted, changed, err := ReconcilePath(kpath, grid, p.opts.PathMismatch)
		if err != nil {
			p.report.Warn(ReshapeMismatch, SectionBands, "%v", err)
			return
		}
		if changed {
			p.report.Warn(ReshapeMismatch, SectionBands, "last path section corrected by %d points to match %d grid points",
				adjusted.Total-kpath.Total, grid)
		}
		kpath = adjusted
	}

	segs, err := AssembleBands(table.Column(1), kpath, p.out.FermiLevel)
	if err != nil {
		p.report.Warn(ReshapeMismatch, SectionBands, "%v", err)
		return
	}
	p.out.Bands = &BandStructure{
		FermiLevel:     p.out.FermiLevel,
		ReciprocalCell: p.out.System.Reciprocal,
		NBands:         len(table.Column(1)) / kpath.Total,
		Segments:       segs,
	}
}

func (p *pipeline) dos() {
	path, ok := p.companion(p.files.DOS, SectionDOS, "density of states")
	if !ok {
		return
	}
	table, err := datagrid.NewReader(datagrid.WithMinColumns(2)).ReadFile(path)
	if err != nil {
		p.report.Warn(ReshapeMismatch, SectionDOS, "%v", err)
		return
	}
	dos, err := AssembleDOS(table.Column(0), table.Column(1))
	if err != nil {
		p.report.Warn(ReshapeMismatch, SectionDOS, "%v", err)
		return
	}
	p.out.DOS = dos
}

// companion picks the first candidate file, warning when there is none or
// more than one
func (p *pipeline) companion(candidates []string, section, what string) (string, bool) {
	switch len(candidates) {
	case 0:
		p.report.Warn(MissingInput, section, "no %s file found", what)
		return "", false
	case 1:
	default:
		p.report.Warn(MultipleInputs, section, "multiple %s files found, using %s", what, candidates[0])
	}
	return candidates[0], true
}

// denseData returns the row-major values of m
func denseData(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
