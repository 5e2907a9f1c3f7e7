package wannier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Severity of a reported issue
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// IssueKind classifies what went wrong in a section
type IssueKind string

const (
	MissingInput       IssueKind = "missing_input"
	MalformedStructure IssueKind = "malformed_structure"
	ReshapeMismatch    IssueKind = "reshape_mismatch"
	FermiUnavailable   IssueKind = "fermi_unavailable"
	InvalidInput       IssueKind = "invalid_input"
	MultipleInputs     IssueKind = "multiple_inputs"
)

// Section names used in reports
const (
	SectionMetadata    = "metadata"
	SectionProgram     = "program"
	SectionSystem      = "system"
	SectionMethod      = "method"
	SectionProjections = "projections"
	SectionHoppings    = "hoppings"
	SectionBands       = "band_structure"
	SectionDOS         = "dos"
	SectionFermi       = "fermi_level"
)

// Issue is one warning or error raised while parsing a file set
type Issue struct {
	Severity Severity
	Kind     IssueKind
	Section  string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s/%s] %s", i.Severity, i.Section, i.Kind, i.Message)
}

// Report accumulates the issues of one parse invocation
type Report struct {
	Issues []Issue
	logger *slog.Logger
}

func newReport(logger *slog.Logger) *Report {
	if logger == nil {
		logger = slog.Default()
	}
	return &Report{logger: logger}
}

func (r *Report) add(sev Severity, kind IssueKind, section, format string, args ...any) {
	issue := Issue{
		Severity: sev,
		Kind:     kind,
		Section:  section,
		Message:  fmt.Sprintf(format, args...),
	}
	r.Issues = append(r.Issues, issue)

	if r.logger == nil {
		return
	}
	level := slog.LevelWarn
	if sev == SeverityError {
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, issue.Message, "section", section, "kind", string(kind))
}

// Warn records a warning
func (r *Report) Warn(kind IssueKind, section, format string, args ...any) {
	r.add(SeverityWarning, kind, section, format, args...)
}

// Error records an error
func (r *Report) Error(kind IssueKind, section, format string, args ...any) {
	r.add(SeverityError, kind, section, format, args...)
}

// Warnings returns the warning issues
func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// Errors returns the error issues
func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// HasKind reports whether an issue of kind was raised for section
func (r *Report) HasKind(section string, kind IssueKind) bool {
	for _, i := range r.Issues {
		if i.Section == section && i.Kind == kind {
			return true
		}
	}
	return false
}

func (r *Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

func (r *Report) String() string {
	lines := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		lines = append(lines, i.String())
	}
	return strings.Join(lines, "\n")
}
