package wannier

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrReshape is returned when an element count does not factor into the requested shape
var ErrReshape = errors.New("cannot reshape")

// Tensor3 is a row-major rank-3 array
type Tensor3 struct {
	Shape [3]int
	Data  []float64
}

// NewTensor3 allocates a zeroed (a, b, c) tensor
func NewTensor3(a, b, c int) (*Tensor3, error) {
	if a <= 0 || b <= 0 || c <= 0 {
		return nil, fmt.Errorf("%w: non-positive shape (%d, %d, %d)", ErrReshape, a, b, c)
	}
	return &Tensor3{Shape: [3]int{a, b, c}, Data: make([]float64, a*b*c)}, nil
}

// Reshape3 wraps data as a (a, b, c) tensor without copying
func Reshape3(data []float64, a, b, c int) (*Tensor3, error) {
	if a <= 0 || b <= 0 || c <= 0 {
		return nil, fmt.Errorf("%w: non-positive shape (%d, %d, %d)", ErrReshape, a, b, c)
	}
	if len(data) != a*b*c {
		return nil, fmt.Errorf("%w: %d values into shape (%d, %d, %d)", ErrReshape, len(data), a, b, c)
	}
	return &Tensor3{Shape: [3]int{a, b, c}, Data: data}, nil
}

// At returns the element at (i, j, k)
func (t *Tensor3) At(i, j, k int) float64 {
	return t.Data[t.index(i, j, k)]
}

// Set sets the element at (i, j, k)
func (t *Tensor3) Set(i, j, k int, v float64) {
	t.Data[t.index(i, j, k)] = v
}

func (t *Tensor3) index(i, j, k int) int {
	if i < 0 || i >= t.Shape[0] || j < 0 || j >= t.Shape[1] || k < 0 || k >= t.Shape[2] {
		panic(fmt.Sprintf("tensor index (%d, %d, %d) out of range %v", i, j, k, t.Shape))
	}
	return (i*t.Shape[1]+j)*t.Shape[2] + k
}

// Matrix returns the i-th (b, c) slice as a gonum matrix sharing storage
func (t *Tensor3) Matrix(i int) *mat.Dense {
	size := t.Shape[1] * t.Shape[2]
	return mat.NewDense(t.Shape[1], t.Shape[2], t.Data[i*size:(i+1)*size])
}

// Len returns the number of elements
func (t *Tensor3) Len() int {
	return len(t.Data)
}
