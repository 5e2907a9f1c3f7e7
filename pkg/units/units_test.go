package units

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		from  string
		to    string
		want  float64
	}{
		{"bohr to angstrom", 5, "Bohr", Angstrom, 5 * 0.529177210903},
		{"ang alias", 2, "Ang", Angstrom, 2},
		{"angstrom to bohr", 0.529177210903, "angstrom", "bohr", 1},
		{"hartree to eV", 1, "Hartree", ElectronVolt, 27.211386245988},
		{"rydberg to eV", 2, "Ry", ElectronVolt, 27.211386245988},
		{"eV identity", -3.5, "eV", "eV", -3.5},
		{"meV to eV", 250, "meV", "eV", 0.25},
		{"inverse bohr", 1, "1/Bohr", "1/angstrom", 1 / 0.529177210903},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.from, tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConvert_Errors(t *testing.T) {
	_, err := Convert(1, "parsec", Angstrom)
	assert.True(t, errors.Is(err, ErrUnknownUnit))

	_, err = Convert(1, "eV", Angstrom)
	assert.True(t, errors.Is(err, ErrIncompatible))
}

func TestConvertAll(t *testing.T) {
	values := []float64{1, 2}
	out, err := ConvertAll(values, "bohr", "angstrom")
	require.NoError(t, err)
	assert.InDelta(t, 0.529177210903, out[0], 1e-12)
	assert.InDelta(t, 2*0.529177210903, out[1], 1e-12)
	assert.Equal(t, []float64{1, 2}, values, "input is left untouched")

	_, err = ConvertAll([]float64{1}, "bohr", "eV")
	assert.Error(t, err)
}
