package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/Hanaasagi/w90parse/internal/archive"
	"github.com/Hanaasagi/w90parse/internal/wannier"
)

var (
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	seedStyle    = color.New(color.Bold, color.FgHiCyan)
	warningStyle = color.New(color.FgHiYellow)
	errorStyle   = color.New(color.FgHiRed)
	missingStyle = color.New(color.FgHiBlack)
)

const columnGap = "  "

// writeTable aligns cells by display width. A nil header prints rows only.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	grow := func(cells []string) {
		for i, cell := range cells {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	grow(header)
	for _, row := range rows {
		grow(row)
	}

	line := func(cells []string, style *color.Color) error {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			if i < len(cells)-1 {
				cell = runewidth.FillRight(cell, widths[i])
			}
			if style != nil {
				cell = style.Sprint(cell)
			}
			padded[i] = cell
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, columnGap), " "))
		return err
	}

	if header != nil {
		if err := line(header, headerStyle); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := line(row, nil); err != nil {
			return err
		}
	}
	return nil
}

func countIssues(issues []wannier.Issue) (warnings, errors int) {
	for _, i := range issues {
		if i.Severity == wannier.SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return warnings, errors
}

func writeIssues(w io.Writer, issues []wannier.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintln(w, headerStyle.Sprint("issues:"))
	for _, i := range issues {
		style := warningStyle
		if i.Severity == wannier.SeverityError {
			style = errorStyle
		}
		fmt.Fprintf(w, "  %s %s\n", style.Sprintf("%-7s", i.Severity), fmt.Sprintf("[%s/%s] %s", i.Section, i.Kind, i.Message))
	}
}

func pathLabels(segments []wannier.BandSegment) string {
	labels := make([]string, 0, len(segments))
	for _, s := range segments {
		labels = append(labels, s.StartLabel+"-"+s.EndLabel)
	}
	return strings.Join(labels, ", ")
}

// sectionSummaries describes each section of res in one line, "" when absent
func sectionSummaries(res *wannier.Result) [][2]string {
	var system, method, hoppings, bands, dos, projections string
	if s := res.System; s != nil {
		system = fmt.Sprintf("%d atoms", s.NAtoms())
	}
	if m := res.Method; m != nil {
		method = fmt.Sprintf("%d Wannier functions, %d Bloch bands", m.NOrbitals, m.NBlochBands)
	}
	if h := res.Hoppings; h != nil && h.Value != nil {
		hoppings = fmt.Sprintf("%d Wigner-Seitz points", h.NWignerSeitzPoints)
	}
	if b := res.Bands; b != nil {
		bands = fmt.Sprintf("%d bands, %d segments (%s)", b.NBands, len(b.Segments), pathLabels(b.Segments))
	}
	if d := res.DOS; d != nil {
		dos = fmt.Sprintf("%d points", d.Len())
	}
	if p := res.Projections; p != nil {
		projections = fmt.Sprintf("%d entries", len(p.Entries))
	}
	return [][2]string{
		{wannier.SectionSystem, system},
		{wannier.SectionMethod, method},
		{wannier.SectionHoppings, hoppings},
		{wannier.SectionFermi, fmt.Sprintf("%.4f eV (%s)", res.FermiLevel, res.FermiSource)},
		{wannier.SectionBands, bands},
		{wannier.SectionDOS, dos},
		{wannier.SectionProjections, projections},
	}
}

// writeResult prints what one parse recovered, section by section
func writeResult(w io.Writer, res *wannier.Result) error {
	fmt.Fprintf(w, "%s (%s)  %s %s\n", seedStyle.Sprint(res.Files.Seedname()), res.Files.Wout, res.Program.Name, res.Program.Version)

	var rows [][]string
	for _, s := range sectionSummaries(res) {
		value := s[1]
		if value == "" {
			value = missingStyle.Sprint("-")
		}
		rows = append(rows, []string{"  " + s[0], value})
	}
	if err := writeTable(w, nil, rows); err != nil {
		return err
	}

	writeIssues(w, res.Report.Issues)
	return nil
}

var runHeader = []string{"ID", "SEED", "VERSION", "ATOMS", "WANNIER", "BANDS", "FERMI (eV)", "WARN", "ERR", "WOUT"}

func runRow(run archive.Run) []string {
	warnings, errors := countIssues(run.Issues)
	id := "-"
	if run.ID > 0 {
		id = strconv.FormatInt(run.ID, 10)
	}
	return []string{
		id,
		run.Seedname,
		run.ProgramVersion,
		strconv.Itoa(run.NAtoms),
		strconv.Itoa(run.NWannier),
		strconv.Itoa(run.NBands),
		strconv.FormatFloat(run.FermiLevel, 'f', 4, 64),
		strconv.Itoa(warnings),
		strconv.Itoa(errors),
		run.Wout,
	}
}

// writeRun prints one archived run with its issues
func writeRun(w io.Writer, run *archive.Run) error {
	rows := [][]string{
		{"id", strconv.FormatInt(run.ID, 10)},
		{"wout", run.Wout},
		{"seed", run.Seedname},
		{"version", run.ProgramVersion},
		{"atoms", strconv.Itoa(run.NAtoms)},
		{"wannier", strconv.Itoa(run.NWannier)},
		{"bands", fmt.Sprintf("%d in %d segments", run.NBands, run.NSegments)},
		{"fermi level", fmt.Sprintf("%.4f eV (%s)", run.FermiLevel, run.FermiSource)},
		{"sections", strings.Join(run.Sections, ", ")},
		{"archived", run.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	if err := writeTable(w, nil, rows); err != nil {
		return err
	}
	writeIssues(w, run.Issues)
	return nil
}
