// Package quantity extracts named, typed values from loosely formatted text
// using ordered tables of declarative regex rules.
//
// A rule table is plain data:
//
//	var rules = []quantity.Rule{
//	    quantity.Scalar("version", `Release:\s*([\d.]+)`, quantity.String),
//	    quantity.Repeated("lattice", `a_\d\s+([-\d.\s]+)`, quantity.Float),
//	    quantity.Scalar("spacing", `spacing\s*([\d.]+)\s*(?P<unit>\w+)`, quantity.Float).WithUnit("unit"),
//	    quantity.Nested("block", `(BEGIN[\s\S]+?)END`, quantity.One, subRules...),
//	}
//
//	res := quantity.Extract(text, rules)
//	v, ok := res.Text("version")
//
// Rules are applied independently. A rule that does not match, or whose
// captured text does not convert to its type, is simply absent from the
// result; conversion failures are listed by Result.Failures.
package quantity

import "fmt"

// Multiplicity controls how many matches a rule keeps
type Multiplicity int

const (
	// One keeps the first match only
	One Multiplicity = iota
	// Many keeps every non-overlapping match in document order
	Many
)

func (m Multiplicity) String() string {
	if m == Many {
		return "many"
	}
	return "one"
}

// Type is the value type captured text is converted to
type Type int

const (
	String Type = iota
	Int
	Float
	// FloatMatrix turns every match into one row of a float matrix
	FloatMatrix
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case FloatMatrix:
		return "float_matrix"
	default:
		return "string"
	}
}

// Kind is the variant of a rule, derived from its fields
type Kind int

const (
	KindScalar Kind = iota
	KindRepeated
	KindNested
	KindMatrix
)

func (k Kind) String() string {
	return [...]string{"scalar", "repeated", "nested", "matrix"}[k]
}

// Rule declares one quantity to extract from text.
// The zero value is not useful; build rules with Scalar, Repeated, Nested or Matrix.
type Rule struct {
	Name         string
	Pattern      string
	Multiplicity Multiplicity
	Type         Type
	// UnitGroup names the capture group holding a physical unit symbol.
	// The unit text is reported as is and never converted.
	UnitGroup string
	// SubRules are applied to the matched region of this rule.
	SubRules []Rule
}

// Scalar declares a rule keeping the first match
func Scalar(name, pattern string, typ Type) Rule {
	return Rule{Name: name, Pattern: pattern, Multiplicity: One, Type: typ}
}

// Repeated declares a rule keeping all matches
func Repeated(name, pattern string, typ Type) Rule {
	return Rule{Name: name, Pattern: pattern, Multiplicity: Many, Type: typ}
}

// Matrix declares a rule whose matches accumulate as rows of a float matrix
func Matrix(name, pattern string) Rule {
	return Rule{Name: name, Pattern: pattern, Multiplicity: Many, Type: FloatMatrix}
}

// Nested declares a rule whose matched region is parsed again with sub
func Nested(name, pattern string, m Multiplicity, sub ...Rule) Rule {
	return Rule{Name: name, Pattern: pattern, Multiplicity: m, Type: String, SubRules: sub}
}

// WithUnit returns a copy of r capturing the unit from the named group
func (r Rule) WithUnit(group string) Rule {
	r.UnitGroup = group
	return r
}

// Kind reports the rule variant
func (r Rule) Kind() Kind {
	switch {
	case len(r.SubRules) > 0:
		return KindNested
	case r.Type == FloatMatrix:
		return KindMatrix
	case r.Multiplicity == Many:
		return KindRepeated
	default:
		return KindScalar
	}
}

func (r Rule) String() string {
	return fmt.Sprintf("Rule{name:%s,kind:%s,type:%s,unit:%q}", r.Name, r.Kind(), r.Type, r.UnitGroup)
}

// Validate compiles every pattern of the table, sub-rules included, and
// checks that names are unique within each level and unit groups exist.
func Validate(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return fmt.Errorf("rule with pattern %q has no name", r.Pattern)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true

		compiled, err := defaultCache.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		if r.UnitGroup != "" && compiled.SubexpIndex(r.UnitGroup) < 0 {
			return fmt.Errorf("rule %q: unit group %q not in pattern", r.Name, r.UnitGroup)
		}
		if len(r.SubRules) > 0 {
			if err := Validate(r.SubRules); err != nil {
				return fmt.Errorf("rule %q: %w", r.Name, err)
			}
		}
	}
	return nil
}

// MustValidate is like Validate but panics on error. Use it for static tables.
func MustValidate(rules []Rule) []Rule {
	if err := Validate(rules); err != nil {
		panic(err)
	}
	return rules
}
