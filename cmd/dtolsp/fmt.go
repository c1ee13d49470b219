package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dtolsp/internal/format"
	"dtolsp/internal/settings"
	"dtolsp/internal/source"
)

var fmtCmd = &cobra.Command{
	Use:          "fmt [flags] [files|dirs...]",
	Short:        "Format DTO files",
	Long:         `Format prints the formatted file for a single argument, lists unformatted files with --check, or rewrites them in place with --write`,
	SilenceUsage: true,
	RunE:         runFmt,
}

func init() {
	fmtCmd.Flags().Bool("check", false, "report files whose formatting differs and exit 1")
	fmtCmd.Flags().Bool("write", false, "rewrite files in place")
	fmtCmd.Flags().Int("indent", 4, "indentation width")
	fmtCmd.Flags().String("props-space-line", "", "blank line policy between properties (always|never|has_annotation)")
	fmtCmd.Flags().String("settings", "", "settings file (default $XDG_CONFIG_HOME/dtolsp/settings.toml)")
}

func runFmt(cmd *cobra.Command, args []string) error {
	check, _ := cmd.Flags().GetBool("check")
	write, _ := cmd.Flags().GetBool("write")
	if check && write {
		return fmt.Errorf("--check and --write are mutually exclusive")
	}
	opts, err := formatOptions(cmd)
	if err != nil {
		return err
	}
	files, err := collectDtoFiles(args)
	if err != nil {
		return err
	}
	if !check && !write && len(files) != 1 {
		return fmt.Errorf("printing to stdout needs exactly one file, got %d; use --check or --write", len(files))
	}

	failed, changed := 0, 0
	for _, path := range files {
		// #nosec G304 -- paths come from the command line
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src, _ := source.RemoveBOM(raw)
		src, _ = source.NormalizeCRLF(src)
		out, err := format.Source(path, src, opts)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		switch {
		case check:
			if !bytes.Equal(out, src) {
				changed++
				fmt.Fprintln(os.Stdout, path)
			}
		case write:
			if bytes.Equal(out, raw) {
				continue
			}
			if err := os.WriteFile(path, out, 0o644); err != nil { // #nosec G306 -- source files stay world-readable
				return err
			}
			changed++
			if !quiet(cmd) {
				fmt.Fprintf(os.Stderr, "formatted %s\n", path)
			}
		default:
			_, err = os.Stdout.Write(out)
			return err
		}
	}
	if failed > 0 {
		return silentError{msg: fmt.Sprintf("%d file(s) not formatted", failed)}
	}
	if check && changed > 0 {
		return silentError{msg: fmt.Sprintf("%d file(s) need formatting", changed)}
	}
	return nil
}

func formatOptions(cmd *cobra.Command) (format.Options, error) {
	indent, _ := cmd.Flags().GetInt("indent")
	opts := format.Options{
		IndentWidth:    indent,
		PropsSpaceLine: loadSettings(cmd).Formatting.PropsSpaceLine,
	}
	if v, _ := cmd.Flags().GetString("props-space-line"); v != "" {
		p := settings.PropsSpaceLine(v)
		if !p.Valid() {
			return opts, fmt.Errorf("invalid --props-space-line %q", v)
		}
		opts.PropsSpaceLine = p
	}
	return opts, nil
}
