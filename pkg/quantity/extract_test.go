package quantity

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
)

const sample = `
 |  Release: 3.1.0     5th March    2020  |
 a_1   1.0  0.0  0.0
 a_2   0.0  2.0  0.0
 a_3   0.0  0.0  3.0
 | Grid size =  4 x  5 x  6      Total points =  120 |
 | Spacing :  5 Bohr |
BEGIN
  label Si
  label O
  x 1.5
END
`

func TestExtract_ScalarKeepsFirstMatch(t *testing.T) {
	res := Extract(sample, []Rule{
		Scalar("version", `Release:\s*([\d.]+)`, String),
		Scalar("first_row", `a_\d\s+([-\d. ]+)`, Float),
	})

	if v, ok := res.Text("version"); !ok || v != "3.1.0" {
		t.Errorf("Text(version) = %q, %v, want 3.1.0", v, ok)
	}
	if row, ok := res.Floats("first_row"); !ok || !reflect.DeepEqual(row, []float64{1, 0, 0}) {
		t.Errorf("Floats(first_row) = %v, %v, want [1 0 0]", row, ok)
	}
}

func TestExtract_RepeatedCollectsAllInOrder(t *testing.T) {
	res := Extract(sample, []Rule{
		Repeated("lattice", `a_\d\s+([-\d. ]+)`, Float),
	})

	want := [][]float64{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}}
	if got := res.FloatRows("lattice"); !reflect.DeepEqual(got, want) {
		t.Errorf("FloatRows(lattice) = %v, want %v", got, want)
	}
}

func TestExtract_MultipleGroupsConvertTogether(t *testing.T) {
	res := Extract(sample, []Rule{
		Scalar("grid", `Grid size *= *(\d+) *x *(\d+) *x *(\d+)`, Int),
		Scalar("n_points", `Total points[\s=]*(\d+)`, Int),
	})

	if grid, ok := res.Ints("grid"); !ok || !reflect.DeepEqual(grid, []int{4, 5, 6}) {
		t.Errorf("Ints(grid) = %v, %v, want [4 5 6]", grid, ok)
	}
	if n, ok := res.Int("n_points"); !ok || n != 120 {
		t.Errorf("Int(n_points) = %d, %v, want 120", n, ok)
	}
}

func TestExtract_AbsentWhenNoMatch(t *testing.T) {
	res := Extract(sample, []Rule{
		Scalar("missing", `Nothing here:\s*(\d+)`, Int),
		Repeated("missing_many", `nope (\d+)`, Int),
	})

	if res.Has("missing") || res.Has("missing_many") {
		t.Error("rules without a match must be absent")
	}
	if len(res.Failures()) != 0 || len(res.Names()) != 0 {
		t.Errorf("Failures() = %v, Names() = %v, want both empty", res.Failures(), res.Names())
	}
	if _, ok := res.Int("missing"); ok {
		t.Error("Int(missing) reported a value")
	}
	if m := res.Matches("missing_many"); m != nil {
		t.Errorf("Matches(missing_many) = %v, want nil", m)
	}
}

func TestResult_NilReceiver(t *testing.T) {
	var res *Result

	if res.Has("x") {
		t.Error("nil result has no entries")
	}
	if f := res.Failures(); len(f) != 0 {
		t.Errorf("Failures() = %v, want empty", f)
	}
	if names := res.FailureNames(); len(names) != 0 {
		t.Errorf("FailureNames() = %v, want empty", names)
	}
	if _, ok := res.Sub("x"); ok {
		t.Error("nil result has no sub results")
	}
}

func TestExtract_UnitIsCapturedNotConverted(t *testing.T) {
	res := Extract(sample, []Rule{
		Scalar("spacing", `Spacing\s*:\s*([\d.]+)\s*(?P<unit>[A-Za-z]+)`, Float).WithUnit("unit"),
	})

	q, ok := res.Quantity("spacing")
	if !ok {
		t.Fatal("Quantity(spacing) missing")
	}
	if q != (Quantity{Value: 5.0, Unit: "Bohr"}) {
		t.Errorf("Quantity(spacing) = %+v, want {5 Bohr}", q)
	}
	if q.String() != "5 Bohr" {
		t.Errorf("String() = %q, want %q", q.String(), "5 Bohr")
	}
}

func TestExtract_UnitGroupExcludedFromValues(t *testing.T) {
	text := "| Outer:  -10.00000  to   15.00000  (eV) |"
	res := Extract(text, []Rule{
		Scalar("outer", `Outer:\s*([-\d.]+)\s*\w*\s*([-\d.]+)\s*\((?P<unit>\w+)\)`, Float).WithUnit("unit"),
	})

	values, unit, ok := res.Vector("outer")
	if !ok || !reflect.DeepEqual(values, []float64{-10, 15}) || unit != "eV" {
		t.Errorf("Vector(outer) = %v, %q, %v, want [-10 15], eV", values, unit, ok)
	}
}

func TestExtract_NestedRunsOnRegionOnly(t *testing.T) {
	rules := []Rule{
		Nested("block", `BEGIN([\s\S]+?)END`, One,
			Repeated("labels", `label\s+(\w+)`, String),
			Scalar("x", `x\s+([\d.]+)`, Float),
			Scalar("version", `Release:\s*([\d.]+)`, String),
		),
	}
	res := Extract(sample, rules)

	sub, ok := res.Sub("block")
	if !ok {
		t.Fatal("Sub(block) missing")
	}
	if got := sub.Texts("labels"); !reflect.DeepEqual(got, []string{"Si", "O"}) {
		t.Errorf("Texts(labels) = %v, want [Si O]", got)
	}
	if x, ok := sub.Float("x"); !ok || math.Abs(x-1.5) > 1e-12 {
		t.Errorf("Float(x) = %v, %v, want 1.5", x, ok)
	}
	// version lives outside the block
	if sub.Has("version") {
		t.Error("nested rules matched outside their region")
	}
}

func TestExtract_NestedMany(t *testing.T) {
	text := "<a n=1><a n=2><a n=3>"
	res := Extract(text, []Rule{
		Nested("tags", `<a([^>]*)>`, Many, Scalar("n", `n=(\d+)`, Int)),
	})

	subs := res.Subs("tags")
	if len(subs) != 3 {
		t.Fatalf("Subs(tags) has %d entries, want 3", len(subs))
	}
	for i, sub := range subs {
		if n, ok := sub.Int("n"); !ok || n != i+1 {
			t.Errorf("tag %d: Int(n) = %d, %v, want %d", i, n, ok, i+1)
		}
	}
}

func TestExtract_MatrixAccumulatesRows(t *testing.T) {
	text := `
 |    1       0.00000   0.00000   0.00000   |     0.00000   0.00000   0.00000  |
 |    2       0.00000   0.00000   0.25000   |     0.00000   0.00000   0.38542  |
 |    3       0.00000   0.25000   0.00000   |     0.00000   0.27253   0.00000  |
`
	res := Extract(text, []Rule{
		Matrix("k_points", `\|\s*\d+\s+(-?[\d.]+)\s+(-?[\d.]+)\s+(-?[\d.]+)\s*\|`),
	})

	m, ok := res.Matrix("k_points")
	if !ok {
		t.Fatal("Matrix(k_points) missing")
	}
	if r, c := m.Dims(); r != 3 || c != 3 {
		t.Errorf("Dims() = %d x %d, want 3 x 3", r, c)
	}
	if m.At(1, 2) != 0.25 || m.At(2, 1) != 0.25 {
		t.Errorf("rows out of place: At(1,2) = %v, At(2,1) = %v", m.At(1, 2), m.At(2, 1))
	}
}

func TestExtract_LocalFailures(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		rules   []Rule
		failing string
		wantErr error
	}{
		{
			name:    "malformed number",
			text:    "alpha: 1.2.3\nbeta: 7\n",
			rules:   []Rule{Scalar("alpha", `alpha:\s*([\d.]+)`, Float), Scalar("beta", `beta:\s*(\d+)`, Int)},
			failing: "alpha",
			wantErr: ErrConvert,
		},
		{
			name:    "ragged matrix",
			text:    "row 1 2 3\nrow 4 5\nbeta: 7\n",
			rules:   []Rule{Matrix("rows", `row((?: [\d.]+)+)`), Scalar("beta", `beta:\s*(\d+)`, Int)},
			failing: "rows",
			wantErr: ErrRaggedMatrix,
		},
		{
			name:    "invalid pattern",
			text:    "beta: 7",
			rules:   []Rule{Scalar("bad", `(`, String), Scalar("beta", `beta:\s*(\d+)`, Int)},
			failing: "bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.text, tt.rules)

			if res.Has(tt.failing) {
				t.Errorf("%s should be absent", tt.failing)
			}
			if got := res.FailureNames(); !reflect.DeepEqual(got, []string{tt.failing}) {
				t.Errorf("FailureNames() = %v, want [%s]", got, tt.failing)
			}
			if tt.wantErr != nil && !errors.Is(res.Failures()[tt.failing], tt.wantErr) {
				t.Errorf("failure = %v, want %v", res.Failures()[tt.failing], tt.wantErr)
			}
			if beta, ok := res.Int("beta"); !ok || beta != 7 {
				t.Errorf("sibling rule: Int(beta) = %d, %v, want 7", beta, ok)
			}
		})
	}
}

func TestExtract_FortranExponent(t *testing.T) {
	res := Extract("tol = 1.0D-10", []Rule{Scalar("tol", `tol = ([\d.D+-]+)`, Float)})

	if v, ok := res.Float("tol"); !ok || math.Abs(v-1e-10) > 1e-20 {
		t.Errorf("Float(tol) = %v, %v, want 1e-10", v, ok)
	}
}

func TestExtract_ConcurrentUse(t *testing.T) {
	rules := []Rule{
		Repeated("lattice", `a_\d\s+([-\d. ]+)`, Float),
		Scalar("grid", `Grid size *= *(\d+) *x *(\d+) *x *(\d+)`, Int),
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Extract(sample, rules)
			if n := len(res.FloatRows("lattice")); n != 3 {
				t.Errorf("concurrent extract found %d lattice rows, want 3", n)
			}
		}()
	}
	wg.Wait()
}

func TestRuleKind(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want Kind
	}{
		{"scalar", Scalar("a", `a`, Int), KindScalar},
		{"repeated", Repeated("a", `a`, Float), KindRepeated},
		{"matrix", Matrix("a", `a`), KindMatrix},
		{"nested", Nested("a", `a`, One, Scalar("b", `b`, String)), KindNested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		wantErr bool
	}{
		{"ok", []Rule{Scalar("a", `(\d)`, Int), Scalar("b", `(\d)`, Int)}, false},
		{"duplicate", []Rule{Scalar("a", `(\d)`, Int), Scalar("a", `(\d)`, Int)}, true},
		{"no name", []Rule{Scalar("", `(\d)`, Int)}, true},
		{"bad pattern", []Rule{Scalar("a", `(`, Int)}, true},
		{"missing unit group", []Rule{Scalar("a", `(\d)`, Int).WithUnit("unit")}, true},
		{"bad sub rule", []Rule{Nested("a", `(x)`, One, Scalar("b", `[`, Int))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.rules); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPatternCache_ReusesCompiled(t *testing.T) {
	pc := NewPatternCache()
	a, err := pc.Compile(`\d+`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	b, err := pc.Compile(`\d+`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if a != b {
		t.Error("second Compile returned a different regexp")
	}
	if pc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", pc.Len())
	}
}
