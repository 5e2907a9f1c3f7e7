package wannier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Two-atom cubic cell, a = 4 angstrom, path G-X-M with 10 divisions on G-X
const testWout = `
            +---------------------------------------------------+
            |                                                   |
            |                   WANNIER90                       |
            |                                                   |
            +---------------------------------------------------+
            |                                                   |
            |        Release: 3.1.0        5th March    2020    |
            |                                                   |
            +---------------------------------------------------+

                                    -------
                                    SYSTEM
                                    -------

                              Lattice Vectors (Ang)
                    a_1     4.000000   0.000000   0.000000
                    a_2     0.000000   4.000000   0.000000
                    a_3     0.000000   0.000000   4.000000

                   Unit Cell Volume:      64.00000  (Ang^3)

                        Reciprocal-Space Vectors (Ang^-1)
                    b_1     1.570796   0.000000   0.000000
                    b_2     0.000000   1.570796   0.000000
                    b_3     0.000000   0.000000   1.570796

 *----------------------------------------------------------------------------*
 |   Site       Fractional Coordinate          Cartesian Coordinate (Ang)     |
 +----------------------------------------------------------------------------+
 | Si   1   0.00000   0.00000   0.00000   |    0.00000   0.00000   0.00000    |
 | Si   2   0.25000   0.25000   0.25000   |    1.00000   1.00000   1.00000    |
 *----------------------------------------------------------------------------*

                                ------------
                                K-POINT GRID
                                ------------

             Grid size =  2 x 2 x 1      Total points =    4

 *---------------------------------- MAIN ------------------------------------*
 |  Number of Wannier Functions               :                 1             |
 |  Number of Objective Wannier Functions     :                 1             |
 |  Number of input Bloch states              :                 4             |
 |  Output verbosity (1=low, 5=high)          :                 1             |
 |  Length Unit                               :               Ang             |
 +----------------------------------------------------------------------------+
 *------------------------------- WANNIERISE ---------------------------------*
 |  Total number of iterations                :               100             |
 |  Convergence tolerence                     :             0.100E-09         |
 +----------------------------------------------------------------------------+
 *------------------------------- DISENTANGLE --------------------------------*
 |                              Energy  Windows                              |
 |                              ---------------                              |
 |                   Outer:   -4.00000  to   10.00000  (eV)                  |
 |                   Inner:   -4.00000  to    2.00000  (eV)                  |
 +----------------------------------------------------------------------------+
 *-------------------------------- PLOTTING ----------------------------------*
 |  Plotting interpolated bandstructure       :                 T             |
 |   Number of K-path sections                :                 2             |
 |   Divisions along first K-path section     :                10             |
 |   Output format                            :           gnuplot             |
 |   Output mode                              :               s-k             |
 *----------------------------------------------------------------------------*
 |   K-space path sections:                                                   |
 |    From: G         0.000  0.000  0.000     To: X         0.500  0.000  0.000 |
 |    From: X         0.500  0.000  0.000     To: M         0.500  0.500  0.000 |
 *----------------------------------------------------------------------------*
`

const testHr = ` written on 19Jan2021 at 10:33:20
           1
           3
    4    6    4
   -1    0    0    1    1   -0.100000    0.000000
    0    0    0    1    1    1.500000    0.000000
    1    0    0    1    1   -0.100000    0.000000
`

const testDOS = `  -1.0000  0.1000
   0.0000  0.2000
   1.0000  0.3000
`

const testWin = `num_wann = 1
num_bands = 4

begin projections
Ang
f=0.25,0.25,0.25:l=0
Si:sp3
end projections
`

// testEnergy is the energy of band b at k-point k in the band fixture
func testEnergy(b, k int) float64 {
	return float64(b)*3 + float64(k)*0.1 - 1
}

// bandData writes nk points for each of nbands bands, bands separated by a blank line
func bandData(nk, nbands int) string {
	var b strings.Builder
	for band := 0; band < nbands; band++ {
		if band > 0 {
			b.WriteString("\n")
		}
		for k := 0; k < nk; k++ {
			fmt.Fprintf(&b, "  %.8E  %.8E\n", float64(k)*0.0785398, testEnergy(band, k))
		}
	}
	return b.String()
}

// writeRun writes files (name -> content) into a fresh directory and
// returns the directory
func writeRun(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// fullRun is a complete file set whose path has 21 points and two bands
func fullRun() map[string]string {
	return map[string]string{
		"si.wout":     testWout,
		"si_hr.dat":   testHr,
		"si_band.dat": bandData(21, 2),
		"si_dos.dat":  testDOS,
		"si.win":      testWin,
	}
}
