package quantity

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrConvert is wrapped by failures caused by captured text that is not a valid number
	ErrConvert = errors.New("cannot convert captured text")
	// ErrRaggedMatrix is recorded when matrix rows differ in length
	ErrRaggedMatrix = errors.New("matrix rows have different lengths")
)

// Extract applies each rule to text and collects the results.
// Rules never abort each other: a failing rule is absent and listed in Failures.
func Extract(text string, rules []Rule) *Result {
	return defaultCache.Extract(text, rules)
}

// Extract applies rules using the patterns compiled in this cache
func (pc *PatternCache) Extract(text string, rules []Rule) *Result {
	res := newResult()
	for _, rule := range rules {
		entry, err := pc.apply(text, rule)
		if err != nil {
			res.fail(rule.Name, err)
			continue
		}
		if entry != nil {
			res.set(entry)
		}
	}
	return res
}

// apply returns a nil entry when the rule does not match
func (pc *PatternCache) apply(text string, rule Rule) (*Entry, error) {
	re, err := pc.Compile(rule.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern: %w", err)
	}

	var locs [][]int
	if rule.Multiplicity == Many {
		locs = re.FindAllStringSubmatchIndex(text, -1)
	} else if loc := re.FindStringSubmatchIndex(text); loc != nil {
		locs = [][]int{loc}
	}
	if len(locs) == 0 {
		return nil, nil
	}

	entry := &Entry{Rule: rule, Matches: make([]Match, 0, len(locs))}
	for _, loc := range locs {
		m, err := buildMatch(re, text, loc, rule)
		if err != nil {
			return nil, err
		}
		entry.Matches = append(entry.Matches, m)

		if len(rule.SubRules) > 0 {
			entry.Nested = append(entry.Nested, pc.Extract(region(text, loc), rule.SubRules))
		}
	}

	if rule.Type == FloatMatrix {
		dense, err := rows(entry.Matches)
		if err != nil {
			return nil, err
		}
		entry.Matrix = dense
	}
	return entry, nil
}

// region is the text sub-rules run on: the first capture group when the
// pattern has one, the whole match otherwise.
func region(text string, loc []int) string {
	if len(loc) >= 4 && loc[2] >= 0 {
		return text[loc[2]:loc[3]]
	}
	return text[loc[0]:loc[1]]
}

func buildMatch(re *regexp.Regexp, text string, loc []int, rule Rule) (Match, error) {
	m := Match{
		Text:  text[loc[0]:loc[1]],
		Start: loc[0],
		End:   loc[1],
	}

	unitIdx := -1
	if rule.UnitGroup != "" {
		unitIdx = re.SubexpIndex(rule.UnitGroup)
	}

	for g := 1; g*2+1 < len(loc); g++ {
		start, end := loc[g*2], loc[g*2+1]
		if start < 0 {
			continue
		}
		captured := strings.TrimSpace(text[start:end])
		if g == unitIdx {
			m.Unit = captured
			continue
		}
		m.Groups = append(m.Groups, captured)
	}

	// A pattern without groups yields the whole match
	if len(m.Groups) == 0 && re.NumSubexp() == 0 {
		m.Groups = []string{strings.TrimSpace(m.Text)}
	}

	if len(rule.SubRules) > 0 {
		return m, nil
	}

	switch rule.Type {
	case Int:
		for _, tok := range m.Tokens() {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return Match{}, fmt.Errorf("%w: %q as int", ErrConvert, tok)
			}
			m.Ints = append(m.Ints, v)
		}
	case Float, FloatMatrix:
		for _, tok := range m.Tokens() {
			v, err := ParseFloat(tok)
			if err != nil {
				return Match{}, fmt.Errorf("%w: %q as float", ErrConvert, tok)
			}
			m.Floats = append(m.Floats, v)
		}
	}
	return m, nil
}

func rows(matches []Match) (*mat.Dense, error) {
	cols := len(matches[0].Floats)
	if cols == 0 {
		return nil, fmt.Errorf("%w: empty first row", ErrRaggedMatrix)
	}
	data := make([]float64, 0, cols*len(matches))
	for i, m := range matches {
		if len(m.Floats) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedMatrix, i, len(m.Floats), cols)
		}
		data = append(data, m.Floats...)
	}
	return mat.NewDense(len(matches), cols, data), nil
}

// ParseFloat parses a float literal, accepting Fortran D exponents
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return v, nil
	}
	if strings.ContainsAny(s, "dD") {
		return strconv.ParseFloat(strings.NewReplacer("d", "e", "D", "E").Replace(s), 64)
	}
	return 0, err
}
