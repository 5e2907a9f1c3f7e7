// nolint:errcheck
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = color.New(color.Bold, color.FgHiWhite)
	commandStyle = color.New(color.FgHiGreen)
	shortStyle   = color.New(color.FgHiCyan)
	exampleStyle = color.New(color.FgCyan)
	flagStyle    = color.New(color.Bold, color.FgHiCyan)
	tipStyle     = color.New(color.FgHiYellow)
)

const projectURL = "https://github.com/Hanaasagi/w90parse"

var HelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}` + titleStyle.Sprintf("Source:") + color.New(color.FgYellow).Sprintln(
	"		"+projectURL,
)

// flag lines as printed by pflag: "  -j, --workers int ..." or "      --archive ..."
var reFlagLine = regexp.MustCompile(`^(\s+)(?:(-[a-zA-Z]), )?(--[a-zA-Z0-9-]+)(.*)$`)

func colorFlags(usages string) string {
	var out strings.Builder
	for _, line := range strings.Split(usages, "\n") {
		m := reFlagLine.FindStringSubmatch(line)
		if m == nil {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		out.WriteString(m[1])
		if m[2] != "" {
			out.WriteString(flagStyle.Sprint(m[2]))
			out.WriteString(", ")
		}
		out.WriteString(flagStyle.Sprint(m[3]))
		out.WriteString(m[4])
		out.WriteByte('\n')
	}
	return strings.TrimSuffix(out.String(), "\n")
}

type usage struct {
	buf bytes.Buffer
}

func (u *usage) section(title string) {
	if u.buf.Len() > 0 {
		u.buf.WriteString("\n\n")
	}
	titleStyle.Fprint(&u.buf, title)
}

func (u *usage) command(name string, padding int, short string) {
	u.buf.WriteString("\n  ")
	commandStyle.Fprintf(&u.buf, "%-*s", padding, name)
	u.buf.WriteByte(' ')
	shortStyle.Fprint(&u.buf, short)
}

func (u *usage) flags(usages string) {
	u.buf.WriteByte('\n')
	u.buf.WriteString(colorFlags(strings.TrimRightFunc(usages, unicode.IsSpace)))
}

// ColorUsageFunc renders cobra usage with colored titles, commands and flags
func ColorUsageFunc(w io.Writer, cmd *cobra.Command) error {
	u := &usage{}

	u.section("Usage:")
	if cmd.Runnable() {
		u.buf.WriteString("\n  ")
		commandStyle.Fprint(&u.buf, cmd.UseLine())
	}
	if cmd.HasAvailableSubCommands() {
		u.buf.WriteString("\n  ")
		commandStyle.Fprintf(&u.buf, "%s [command]", cmd.CommandPath())
	}

	if len(cmd.Aliases) > 0 {
		u.section("Aliases:")
		u.buf.WriteString("\n  " + strings.Join(cmd.Aliases, ", "))
	}

	if cmd.HasExample() {
		u.section("Examples:")
		u.buf.WriteByte('\n')
		exampleStyle.Fprint(&u.buf, cmd.Example)
	}

	if cmd.HasAvailableSubCommands() {
		u.section("Available Commands:")
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() || sub.Name() == "help" {
				u.command(sub.Name(), sub.NamePadding(), sub.Short)
			}
		}
	}

	if cmd.HasAvailableLocalFlags() {
		u.section("Flags:")
		u.flags(cmd.LocalFlags().FlagUsages())
	}

	if cmd.HasAvailableInheritedFlags() {
		u.section("Global Flags:")
		u.flags(cmd.InheritedFlags().FlagUsages())
	}

	if cmd.HasAvailableSubCommands() {
		u.buf.WriteString("\n\n")
		tipStyle.Fprintf(&u.buf, "Use \"%s [command] --help\" for more information about a command.", cmd.CommandPath())
	}

	fmt.Fprintln(&u.buf)

	_, err := w.Write(u.buf.Bytes())
	return err
}
