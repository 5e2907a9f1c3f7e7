package wannier

import (
	q "github.com/Hanaasagi/w90parse/pkg/quantity"
)

// Quantity names of the .wout rule table
const (
	qVersion        = "version"
	qLatticeUnit    = "lattice_unit"
	qLattice        = "lattice_vectors"
	qReciprocal     = "reciprocal_lattice_vectors"
	qReciprocalUnit = "reciprocal_unit"
	qStructure      = "structure"
	qLabels         = "labels"
	qPositions      = "positions"
	qPositionUnit   = "position_unit"
	qKMesh          = "k_mesh"
	qNPoints        = "n_points"
	qGrid           = "grid"
	qKPoints        = "k_points"
	qNWannier       = "n_wannier"
	qNBands         = "n_bloch_bands"
	qNIter          = "n_iterations"
	qConvTol        = "convergence_tolerance"
	qEnergyWindows  = "energy_windows"
	qOuter          = "outer"
	qInner          = "inner"
	qNSegments      = "n_k_segments"
	qFirstDivisions = "first_segment_divisions"
	qSegments       = "band_segments_points"
	qSegmentLabels  = "band_segment_labels"
)

// Quantity names of the _hr.dat rule table
const (
	qHrHeader     = "header"
	qHrDegeneracy = "degeneracy_factors"
	qHrHoppings   = "hoppings"
)

// Quantity names of the .win rule table
const (
	qProjections = "projections"
	qProjUnits   = "units"
	qProjRandom  = "random"
	qProjEntries = "entries"
)

const (
	reFloat = `(-?[\d.]+(?:[eEdD][-+]?\d+)?)`
	reRow3  = reFloat + `\s+` + reFloat + `\s+` + reFloat
)

// bannerPattern identifies a Wannier90 output log
const bannerPattern = `(?i)\|\s*Wannier90\s*\|`

var structureRules = []q.Rule{
	q.Repeated(qLabels, `\|\s*([A-Z][a-z]*)`, q.String),
	q.Matrix(qPositions, `\|\s*`+reRow3),
	q.Scalar(qPositionUnit, `Cartesian Coordinate\s*\((\w+)\)`, q.String),
}

var kMeshRules = []q.Rule{
	q.Scalar(qNPoints, `Total points[\s=]*(\d+)`, q.Int),
	q.Scalar(qGrid, `Grid size\s*=\s*(\d+)\s*x\s*(\d+)\s*x\s*(\d+)`, q.Int),
	q.Matrix(qKPoints, `\|\s*\d+\s+`+reRow3+`\s*\|`),
}

var energyWindowRules = []q.Rule{
	q.Scalar(qOuter, `\|\s*Outer:\s*([-\d.]+)\s*\w*\s*([-\d.]+)\s*\((?P<unit>\w+)\)`, q.Float).WithUnit("unit"),
	q.Scalar(qInner, `\|\s*Inner:\s*([-\d.]+)\s*\w*\s*([-\d.]+)\s*\((?P<unit>\w+)\)`, q.Float).WithUnit("unit"),
}

// WoutRules extracts metadata from the main output log
var WoutRules = q.MustValidate([]q.Rule{
	q.Scalar(qVersion, `\|\s*Release:\s*([\d.]+)`, q.String),
	q.Scalar(qLatticeUnit, `Lattice Vectors\s*\((\w+)\)`, q.String),
	q.Matrix(qLattice, `a_\d\s+`+reRow3),
	q.Matrix(qReciprocal, `b_\d\s+`+reRow3),
	q.Scalar(qReciprocalUnit, `Reciprocal-Space Vectors\s*\(([^)\s]+)\)`, q.String),
	q.Nested(qStructure, `(\s*Fractional Coordinate[\s\S]+?)(?:[\n\r]\s*(?:PROJECTIONS|K-POINT GRID))`, q.One, structureRules...),
	q.Nested(qKMesh, `(K-POINT GRID[\s\S]+?)(?:-\s*MAIN)`, q.One, kMeshRules...),
	q.Scalar(qNWannier, `\|\s*Number of Wannier Functions\s*:\s*(\d+)`, q.Int),
	q.Scalar(qNBands, `\|\s*Number of input Bloch states\s*:\s*(\d+)`, q.Int),
	q.Scalar(qNIter, `\|\s*Total number of iterations\s*:\s*(\d+)`, q.Int),
	q.Scalar(qConvTol, `\|\s*Convergence toler[ae]nce\s*:\s*([\d.eEdD+-]+)`, q.Float),
	q.Nested(qEnergyWindows, `(\|\s*Energy\s*Windows\s*\|[\s\S]+?)\+-{10,}`, q.One, energyWindowRules...),
	q.Scalar(qNSegments, `\|\s*Number of K-path sections\s*:\s*(\d+)`, q.Int),
	q.Scalar(qFirstDivisions, `\|\s*Divisions along first K-path section\s*:\s*(\d+)`, q.Int),
	q.Matrix(qSegments, `\|\s*From:\s*\S+\s+`+reRow3+`\s+To:\s*\S+\s+`+reRow3),
	q.Repeated(qSegmentLabels, `\|\s*From:\s*(\S+)\s+[-\d.\s]+To:\s*(\S+)`, q.String),
})

// HrRules extracts the degeneracy block and hopping rows from a _hr.dat file
var HrRules = q.MustValidate([]q.Rule{
	q.Scalar(qHrHeader, `written on\s*([^\r\n]*)`, q.String),
	q.Scalar(qHrDegeneracy, `written on[\s\w]*:\d*:\d*\s*([\d\s]+)`, q.Int),
	q.Matrix(qHrHoppings, `(?m)^\s*(-?\d+)\s+(-?\d+)\s+(-?\d+)\s+(\d+)\s+(\d+)\s+(-?\d*\.\d+(?:[eE][-+]?\d+)?)\s+(-?\d*\.\d+(?:[eE][-+]?\d+)?)[ \t]*\r?$`),
})

var projectionRules = []q.Rule{
	q.Scalar(qProjUnits, `(?im)^\s*(bohr|ang|angstrom)\s*$`, q.String),
	q.Scalar(qProjRandom, `(?im)^\s*(random)\s*$`, q.String),
	q.Repeated(qProjEntries, `(?m)^[ \t]*([^:\s#!][^:\n]*?)[ \t]*:[ \t]*([^\n#!]+)`, q.String),
}

// WinRules extracts the projections block from a .win input file
var WinRules = q.MustValidate([]q.Rule{
	q.Nested(qProjections, `(?i)begin\s+projections[ \t]*\r?\n([\s\S]*?)end\s+projections`, q.One, projectionRules...),
})
