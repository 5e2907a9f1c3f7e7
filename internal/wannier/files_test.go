package wannier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	dir := writeRun(t, map[string]string{
		"si.wout":        testWout,
		"si_band.dat":    "",
		"a_band.dat":     "",
		"si_hr.dat":      "",
		"si.win":         "",
		"si_centres.xyz": "",
	})

	fs, err := Discover(filepath.Join(dir, "si.wout"))
	require.NoError(t, err)

	assert.Equal(t, "si", fs.Seedname())
	assert.Equal(t, []string{filepath.Join(dir, "si_band.dat"), filepath.Join(dir, "a_band.dat")}, fs.Band)
	assert.Equal(t, []string{filepath.Join(dir, "si_hr.dat")}, fs.Hr)
	assert.Equal(t, []string{filepath.Join(dir, "si.win")}, fs.Win)
	assert.Empty(t, fs.DOS)
}

func TestDiscover_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(filepath.Join(dir, "missing.wout"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Discover(dir)
	assert.Error(t, err)
}

func TestDiscoverDir(t *testing.T) {
	dir := writeRun(t, map[string]string{
		"b.wout":     testWout,
		"a.wout":     testWout,
		"a_band.dat": "",
	})

	sets, err := DiscoverDir(dir)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "a", sets[0].Seedname())
	assert.Equal(t, "b", sets[1].Seedname())
	assert.Len(t, sets[1].Band, 1, "companions are shared by every log in the directory")
}
