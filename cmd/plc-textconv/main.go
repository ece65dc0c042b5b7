// Command plc-textconv turns PLC project files into stable, diff-friendly
// text. It is meant to run as a git textconv filter:
//
//	git config diff.plc.textconv plc-textconv
//	git config diff.plc.xfuncname '^::: (.*)$'
//	echo '*.smbp diff=plc' >> .gitattributes
//
// Usage:
//
//	plc-textconv [conv] <file> [--format=text|xml] [--no-symbols]
//	plc-textconv fingerprint <file>...
//	plc-textconv gitconfig
//	plc-textconv version
//
// The converted text goes to standard output, diagnostics to standard
// error. Any failure exits with status 1 and writes nothing to standard
// output.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/damischa1/plc-textconv/internal/annotate"
	perrors "github.com/damischa1/plc-textconv/internal/errors"
	"github.com/damischa1/plc-textconv/internal/logging"
	"github.com/damischa1/plc-textconv/internal/textconv"
)

const version = "0.4.0"

// CLI defines the command-line interface for plc-textconv.
type CLI struct {
	LogLevel  string `name:"log-level" help:"Diagnostic log level" enum:"debug,info,warn,error" default:"warn" env:"PLC_TEXTCONV_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Diagnostic log format (auto: text on a terminal, JSON otherwise)" enum:"auto,text,json" default:"auto" env:"PLC_TEXTCONV_LOG_FORMAT"`

	Conv        ConvCmd        `cmd:"" default:"withargs" help:"Convert a project file to diffable text"`
	Fingerprint FingerprintCmd `cmd:"" help:"Print the BLAKE3 fingerprint of each file's converted text"`
	Gitconfig   GitconfigCmd   `cmd:"" help:"Print git configuration for the diff driver"`
	Version     VersionCmd     `cmd:"" help:"Print version information"`
}

func (c *CLI) initLogging() error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// ConvCmd converts one project file.
type ConvCmd struct {
	File    string `arg:"" help:"Project file (.smbp, PLCopen XML, .export), optionally xz-compressed" type:"existingfile"`
	Format  string `help:"Output format" enum:"text,xml" default:"text"`
	Symbols bool   `help:"Annotate IL operands with their I/O symbols" default:"true" negatable:""`
}

func (c *ConvCmd) Run(w io.Writer) error {
	opts := textconv.Options{Format: textconv.Format(c.Format), Symbols: c.Symbols}
	if err := textconv.Convert(c.File, w, opts); err != nil {
		logging.Failure(c.File, perrors.KindOf(err), err)
		return err
	}
	return nil
}

// FingerprintCmd hashes the converted text of each file. Files with equal
// fingerprints carry the same logic regardless of layout or regenerated
// identifiers.
type FingerprintCmd struct {
	Files   []string `arg:"" help:"Project files" type:"existingfile"`
	Symbols bool     `help:"Include I/O symbols in the hashed text" default:"true" negatable:""`
}

func (c *FingerprintCmd) Run(w io.Writer) error {
	opts := textconv.DefaultOptions()
	opts.Symbols = c.Symbols

	var sb strings.Builder
	for _, f := range c.Files {
		data, err := textconv.ReadInput(f)
		if err == nil {
			var out []byte
			if out, err = textconv.Transform(data, opts); err == nil {
				fmt.Fprintf(&sb, "%s  %s\n", textconv.Fingerprint(out), f)
				continue
			}
		}
		logging.Failure(f, perrors.KindOf(err), err)
		return err
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// GitconfigCmd prints the configuration that wires the filter into git.
type GitconfigCmd struct {
	Driver  string   `help:"Diff driver name" default:"plc"`
	Command string   `help:"Command git runs as textconv" default:"plc-textconv"`
	Pattern []string `help:"File patterns for .gitattributes" default:"*.smbp,*.export,*.xml"`
}

func (c *GitconfigCmd) Run(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("# .git/config\n")
	sb.WriteString(annotate.GitConfig(c.Driver, c.Command))
	sb.WriteString("\n# .gitattributes\n")
	for _, p := range c.Pattern {
		fmt.Fprintf(&sb, "%s diff=%s\n", p, c.Driver)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(w io.Writer) error {
	_, err := fmt.Fprintf(w, "plc-textconv %s\n", version)
	return err
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("plc-textconv"),
		kong.Description("Convert PLC project files into diff-friendly text"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	ctx.FatalIfErrorf(cli.initLogging())
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
