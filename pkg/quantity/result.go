package quantity

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Match is one hit of a rule with its captures converted to the rule type
type Match struct {
	Text   string   // whole matched text
	Groups []string // trimmed capture groups, unit group excluded
	Ints   []int
	Floats []float64
	Unit   string
	// Start and End are byte offsets of the match in the searched text
	Start int
	End   int
}

// Tokens returns all capture groups split on whitespace
func (m Match) Tokens() []string {
	var tokens []string
	for _, g := range m.Groups {
		tokens = append(tokens, strings.Fields(g)...)
	}
	return tokens
}

// Quantity is a captured number with the unit symbol it was written in
type Quantity struct {
	Value float64
	Unit  string
}

func (q Quantity) String() string {
	if q.Unit == "" {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

// Entry holds everything extracted for one rule
type Entry struct {
	Rule    Rule
	Matches []Match
	Matrix  *mat.Dense
	Nested  []*Result
}

// Result maps rule names to extracted entries. A name without an entry means
// the rule did not match or its value could not be converted.
type Result struct {
	entries  map[string]*Entry
	order    []string
	failures map[string]error
}

func newResult() *Result {
	return &Result{
		entries:  make(map[string]*Entry),
		failures: make(map[string]error),
	}
}

func (r *Result) set(e *Entry) {
	if _, exists := r.entries[e.Rule.Name]; !exists {
		r.order = append(r.order, e.Rule.Name)
	}
	r.entries[e.Rule.Name] = e
}

func (r *Result) fail(name string, err error) {
	r.failures[name] = err
}

// Has reports whether the rule produced a value
func (r *Result) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries[name]
	return ok
}

// Names returns the names of present entries in rule order
func (r *Result) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Entry returns the raw entry of a rule
func (r *Result) Entry(name string) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entries[name]
	return e, ok
}

// Failures returns local conversion failures keyed by rule name
func (r *Result) Failures() map[string]error {
	if r == nil {
		return map[string]error{}
	}
	out := make(map[string]error, len(r.failures))
	for k, v := range r.failures {
		out[k] = v
	}
	return out
}

// FailureNames returns the failing rule names, sorted
func (r *Result) FailureNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.failures))
	for k := range r.failures {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Match returns the first match of a rule
func (r *Result) Match(name string) (Match, bool) {
	e, ok := r.Entry(name)
	if !ok || len(e.Matches) == 0 {
		return Match{}, false
	}
	return e.Matches[0], true
}

// Matches returns every match of a rule in document order
func (r *Result) Matches(name string) []Match {
	e, ok := r.Entry(name)
	if !ok {
		return nil
	}
	return e.Matches
}

// Text returns the capture groups of the first match joined by a space
func (r *Result) Text(name string) (string, bool) {
	m, ok := r.Match(name)
	if !ok {
		return "", false
	}
	return strings.Join(m.Groups, " "), true
}

// Texts returns the joined capture groups of every match
func (r *Result) Texts(name string) []string {
	matches := r.Matches(name)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.Join(m.Groups, " "))
	}
	return out
}

// Int returns the first integer of the first match
func (r *Result) Int(name string) (int, bool) {
	m, ok := r.Match(name)
	if !ok || len(m.Ints) == 0 {
		return 0, false
	}
	return m.Ints[0], true
}

// Ints returns all integers of the first match
func (r *Result) Ints(name string) ([]int, bool) {
	m, ok := r.Match(name)
	if !ok || len(m.Ints) == 0 {
		return nil, false
	}
	return m.Ints, true
}

// Float returns the first float of the first match
func (r *Result) Float(name string) (float64, bool) {
	m, ok := r.Match(name)
	if !ok || len(m.Floats) == 0 {
		return 0, false
	}
	return m.Floats[0], true
}

// Floats returns all floats of the first match
func (r *Result) Floats(name string) ([]float64, bool) {
	m, ok := r.Match(name)
	if !ok || len(m.Floats) == 0 {
		return nil, false
	}
	return m.Floats, true
}

// FloatRows returns the floats of every match, one slice per match
func (r *Result) FloatRows(name string) [][]float64 {
	matches := r.Matches(name)
	out := make([][]float64, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Floats)
	}
	return out
}

// Quantity returns the first float of the first match with its unit symbol
func (r *Result) Quantity(name string) (Quantity, bool) {
	m, ok := r.Match(name)
	if !ok || len(m.Floats) == 0 {
		return Quantity{}, false
	}
	return Quantity{Value: m.Floats[0], Unit: m.Unit}, true
}

// Vector returns all floats of the first match with its unit symbol
func (r *Result) Vector(name string) ([]float64, string, bool) {
	m, ok := r.Match(name)
	if !ok || len(m.Floats) == 0 {
		return nil, "", false
	}
	return m.Floats, m.Unit, true
}

// Matrix returns the accumulated rows of a matrix rule
func (r *Result) Matrix(name string) (*mat.Dense, bool) {
	e, ok := r.Entry(name)
	if !ok || e.Matrix == nil {
		return nil, false
	}
	return e.Matrix, true
}

// Sub returns the nested result of the first match of a nested rule
func (r *Result) Sub(name string) (*Result, bool) {
	e, ok := r.Entry(name)
	if !ok || len(e.Nested) == 0 {
		return nil, false
	}
	return e.Nested[0], true
}

// Subs returns the nested results of every match of a nested rule
func (r *Result) Subs(name string) []*Result {
	e, ok := r.Entry(name)
	if !ok {
		return nil
	}
	return e.Nested
}
