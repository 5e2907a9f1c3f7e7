package wannier

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_FullRun(t *testing.T) {
	dir := writeRun(t, fullRun())

	res, err := ParseFile(filepath.Join(dir, "si.wout"), Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Report.Issues, res.Report.String())

	assert.Equal(t, ProgramName, res.Program.Name)
	assert.Equal(t, "3.1.0", res.Program.Version)
	require.NotNil(t, res.Program.SemVer)
	assert.Equal(t, uint64(3), res.Program.SemVer.Major())

	sys := res.System
	require.NotNil(t, sys)
	assert.Equal(t, []string{"Si", "Si"}, sys.Labels)
	assert.Equal(t, Vec3{1, 1, 1}, sys.Positions[1])
	assert.Equal(t, 4.0, sys.Lattice.At(1, 1))
	assert.InDelta(t, 1.570796, sys.Reciprocal.At(2, 2), 1e-9)
	assert.Equal(t, [3]bool{true, true, true}, sys.Periodic)

	m := res.Method
	require.NotNil(t, m)
	assert.Equal(t, 1, m.NOrbitals)
	assert.Equal(t, 4, m.NBlochBands)
	assert.Equal(t, 100, m.NIterations)
	assert.True(t, m.IsMaximallyLocalized)
	assert.InDelta(t, 1e-10, m.ConvergenceTolerance, 1e-20)
	assert.Equal(t, &EnergyWindow{Min: -4, Max: 10}, m.OuterWindow)
	assert.Equal(t, &EnergyWindow{Min: -4, Max: 2}, m.InnerWindow)
	require.NotNil(t, m.KMesh)
	assert.Equal(t, [3]int{2, 2, 1}, m.KMesh.Grid)
	assert.Equal(t, 4, m.KMesh.NPoints)

	h := res.Hoppings
	require.NotNil(t, h)
	assert.Equal(t, 3, h.NWignerSeitzPoints)
	assert.Equal(t, []int{4, 6, 4}, h.DegeneracyFactors)
	require.NotNil(t, h.Value)
	assert.Equal(t, FermiFromHoppingMatrix, res.FermiSource)
	assert.Equal(t, 1.5, res.FermiLevel)

	bands := res.Bands
	require.NotNil(t, bands)
	assert.Equal(t, 2, bands.NBands)
	assert.Equal(t, 1.5, bands.FermiLevel)
	require.Len(t, bands.Segments, 2)
	assert.Equal(t, 10, bands.Segments[0].PointCount)
	assert.Equal(t, 11, bands.Segments[1].PointCount)
	assert.Equal(t, "X", bands.Segments[1].StartLabel)
	assert.InDelta(t, testEnergy(1, 12), bands.Segments[1].Energies.At(0, 2, 1), 1e-9)
	assert.Equal(t, OccupiedWeight, bands.Segments[1].Occupations.At(0, 10, 0))
	assert.Equal(t, UnoccupiedWeight, bands.Segments[0].Occupations.At(0, 0, 1))

	require.NotNil(t, res.DOS)
	assert.Equal(t, []float64{-1, 0, 1}, res.DOS.Energies)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, res.DOS.Values)

	proj := res.Projections
	require.NotNil(t, proj)
	assert.Equal(t, "angstrom", proj.Units)
	require.Len(t, proj.Entries, 2)
	assert.Equal(t, "Si", proj.Entries[0].Label)
	assert.Equal(t, []int{0, 1}, proj.Entries[0].AtomIndices)
	assert.Equal(t, []string{"s"}, proj.Entries[0].Orbitals)
	assert.Equal(t, []string{"sp3"}, proj.Entries[1].Orbitals)
}

func TestParse_CRLFLineEndings(t *testing.T) {
	files := fullRun()
	for name, content := range files {
		files[name] = strings.ReplaceAll(content, "\n", "\r\n")
	}
	dir := writeRun(t, files)

	res, err := ParseFile(filepath.Join(dir, "si.wout"), Options{})
	require.NoError(t, err)

	h := res.Hoppings
	require.NotNil(t, h)
	require.NotNil(t, h.Value)
	assert.Equal(t, 3, h.NWignerSeitzPoints)
	assert.Equal(t, FermiFromHoppingMatrix, res.FermiSource)
	assert.Equal(t, 1.5, res.FermiLevel)

	require.NotNil(t, res.Bands)
	assert.Equal(t, 1.5, res.Bands.FermiLevel)
	require.NotNil(t, res.Projections)
	assert.Len(t, res.Projections.Entries, 2)
}

func TestParse_MissingMetadataAborts(t *testing.T) {
	dir := t.TempDir()

	res, err := Parse(FileSet{Wout: filepath.Join(dir, "none.wout")}, Options{})
	assert.Error(t, err)
	assert.Nil(t, res)

	_, err = ParseFile(filepath.Join(dir, "none.wout"), Options{})
	assert.Error(t, err)
}

func TestParse_MissingCompanions(t *testing.T) {
	dir := writeRun(t, map[string]string{"si.wout": testWout})

	res, err := ParseFile(filepath.Join(dir, "si.wout"), Options{})
	require.NoError(t, err)

	require.NotNil(t, res.System)
	assert.Nil(t, res.Hoppings)
	assert.Nil(t, res.Bands)
	assert.Nil(t, res.DOS)
	assert.Nil(t, res.Projections)

	for _, section := range []string{SectionHoppings, SectionBands, SectionDOS, SectionProjections} {
		assert.True(t, res.Report.HasKind(section, MissingInput), section)
	}
	// nothing consumes the Fermi level
	assert.False(t, res.Report.HasKind(SectionFermi, FermiUnavailable))
	assert.Empty(t, res.Report.Errors())
}

func TestParse_HoppingFailureFallsBackToZeroFermi(t *testing.T) {
	files := fullRun()
	// drop the last hopping row
	files["si_hr.dat"] = testHr[:len(testHr)-len("    1    0    0    1    1   -0.100000    0.000000\n")]
	dir := writeRun(t, files)

	res, err := ParseFile(filepath.Join(dir, "si.wout"), Options{})
	require.NoError(t, err)

	require.NotNil(t, res.Hoppings)
	assert.Nil(t, res.Hoppings.Value)
	assert.Equal(t, []int{4, 6, 4}, res.Hoppings.DegeneracyFactors)
	assert.True(t, res.Report.HasKind(SectionHoppings, ReshapeMismatch))

	assert.Equal(t, FermiFallback, res.FermiSource)
	assert.Equal(t, 0.0, res.FermiLevel)
	assert.True(t, res.Report.HasKind(SectionFermi, FermiUnavailable))

	// bands are still assembled against 0 eV
	require.NotNil(t, res.Bands)
	segs := res.Bands.Segments
	assert.Equal(t, OccupiedWeight, segs[0].Occupations.At(0, 9, 0))
	assert.Equal(t, UnoccupiedWeight, segs[1].Occupations.At(0, 0, 0), "a level at exactly 0 eV is empty")
	assert.Equal(t, UnoccupiedWeight, segs[1].Occupations.At(0, 1, 0))
}

func TestParse_PathMismatch(t *testing.T) {
	files := fullRun()
	files["si_band.dat"] = bandData(22, 2)
	dir := writeRun(t, files)
	wout := filepath.Join(dir, "si.wout")

	t.Run("fail", func(t *testing.T) {
		res, err := ParseFile(wout, Options{PathMismatch: MismatchFail})
		require.NoError(t, err)
		assert.Nil(t, res.Bands)
		assert.True(t, res.Report.HasKind(SectionBands, ReshapeMismatch))
		assert.NotNil(t, res.DOS, "sibling sections are unaffected")
	})

	t.Run("adjust last", func(t *testing.T) {
		res, err := ParseFile(wout, Options{PathMismatch: MismatchAdjustLast})
		require.NoError(t, err)
		require.NotNil(t, res.Bands)
		assert.Equal(t, 12, res.Bands.Segments[1].PointCount)
		assert.True(t, res.Report.HasKind(SectionBands, ReshapeMismatch))
		assert.Empty(t, res.Report.Errors())
	})
}

func TestParse_NoStructureBlock(t *testing.T) {
	files := fullRun()
	files["si.wout"] = "|   Wannier90   |\n |  Release: 2.1  |\n"
	dir := writeRun(t, files)

	res, err := ParseFile(filepath.Join(dir, "si.wout"), Options{})
	require.NoError(t, err)

	assert.Nil(t, res.System)
	assert.Nil(t, res.Projections)
	assert.Nil(t, res.Bands)
	assert.True(t, res.Report.HasKind(SectionSystem, MalformedStructure))
	assert.True(t, res.Report.HasKind(SectionProjections, MalformedStructure))
	assert.True(t, res.Report.HasKind(SectionBands, MalformedStructure))

	// hoppings fall back to the header token for the orbital count
	require.NotNil(t, res.Hoppings)
	assert.Equal(t, 1, res.Hoppings.NOrbitals)
	assert.NotNil(t, res.DOS)

	assert.Equal(t, "2.1", res.Program.Version)
	require.NotNil(t, res.Program.SemVer)
	assert.Equal(t, "2.1.0", res.Program.SemVer.String())
}

func TestParse_MultipleCandidates(t *testing.T) {
	files := fullRun()
	files["other_dos.dat"] = "0 0\n"
	dir := writeRun(t, files)

	res, err := ParseFile(filepath.Join(dir, "si.wout"), Options{})
	require.NoError(t, err)
	assert.True(t, res.Report.HasKind(SectionDOS, MultipleInputs))
	require.NotNil(t, res.DOS)
	assert.Equal(t, 3, res.DOS.Len(), "the seed's own file is preferred")
}

func TestParse_StripsANSI(t *testing.T) {
	files := fullRun()
	files["si.wout"] = "\x1b[1m" + testWout + "\x1b[0m\n"
	dir := writeRun(t, files)

	res, err := ParseFile(filepath.Join(dir, "si.wout"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", res.Program.Version)
	assert.NotNil(t, res.Bands)
}

func TestParse_BohrLattice(t *testing.T) {
	wout := `|  Wannier90  |
                              Lattice Vectors (Bohr)
                    a_1     2.000000   0.000000   0.000000
                    a_2     0.000000   2.000000   0.000000
                    a_3     0.000000   0.000000   2.000000
 |   Site       Fractional Coordinate          Cartesian Coordinate (Bohr)    |
 | H    1   0.00000   0.00000   0.00000   |    1.00000   0.00000   0.00000    |
 *----------------------------------------------------------------------------*
                                K-POINT GRID
`
	dir := writeRun(t, map[string]string{"h.wout": wout})
	res, err := ParseFile(filepath.Join(dir, "h.wout"), Options{})
	require.NoError(t, err)

	sys := res.System
	require.NotNil(t, sys)
	assert.InDelta(t, 2*0.529177210903, sys.Lattice.At(0, 0), 1e-12)
	assert.InDelta(t, 0.529177210903, sys.Positions[0][0], 1e-12)
	// computed from the lattice
	require.NotNil(t, sys.Reciprocal)
	assert.InDelta(t, 2*math.Pi/(2*0.529177210903), sys.Reciprocal.At(0, 0), 1e-9)
	assert.InDelta(t, 0, sys.Reciprocal.At(0, 1), 1e-12)
}

func TestParse_NotWannier90(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.wout")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	res, err := ParseFile(path, Options{})
	require.NoError(t, err)
	assert.True(t, res.Report.HasKind(SectionProgram, InvalidInput))
	assert.True(t, res.Report.HasKind(SectionSystem, MalformedStructure))
}
