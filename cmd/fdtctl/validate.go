package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fdtkit/pkg/fdt"
)

var (
	validateLimits string
	validateFormat string
	validateConfig string
)

func init() {
	cmd := newValidateCmd()
	cmd.Flags().StringVar(&validateLimits, "limits", "default", "Limits preset to use (default, strict, relaxed)")
	cmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Report format: text or compact")
	cmd.Flags().StringVar(&validateConfig, "config", "", "YAML passthrough profile (reference table and external phandles)")
	rootCmd.AddCommand(cmd)
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a device tree for structural and reference problems",
		Long: `The validate command checks a device tree blob or source and reports
every issue it finds: dangling or malformed references, duplicate
phandles, reg properties that do not match their bus, and structural
limits.

Limits presets:
  default - Limits matching dtc and the Linux loader
  strict  - Tighter limits for small guests
  relaxed - No name length limits

Example:
  fdtctl validate host.dtb
  fdtctl validate host.dtb --limits strict
  fdtctl validate host.dtb --format compact
  fdtctl validate host.dtb --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
	return cmd
}

func runValidate(args []string) error {
	path := args[0]

	opts := fdt.DefaultCheckOptions()
	switch validateLimits {
	case "default":
		opts.Limits = fdt.DefaultLimits()
	case "strict":
		opts.Limits = fdt.StrictLimits()
	case "relaxed":
		opts.Limits = fdt.RelaxedLimits()
	default:
		return fmt.Errorf("unknown limits preset: %s (must be default, strict, or relaxed)", validateLimits)
	}
	if validateConfig != "" {
		profile, err := fdt.LoadProfile(validateConfig)
		if err != nil {
			return err
		}
		opts.External = profile.External
		opts.Table = fdt.ReferenceTable(profile)
	}

	printVerbose("Validating %s (limits: %s)\n", path, validateLimits)
	report, err := fdt.ValidateFile(path, opts)
	if err != nil {
		return err
	}

	if jsonOut {
		text, err := report.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, text)
	} else if !quiet {
		switch validateFormat {
		case "text":
			fmt.Fprint(os.Stdout, report.FormatText())
		case "compact":
			fmt.Fprint(os.Stdout, report.FormatTextCompact())
		default:
			return fmt.Errorf("unknown report format: %s (must be text or compact)", validateFormat)
		}
	}

	if report.HasErrors() {
		return fmt.Errorf("%s: %d error(s) found", path, report.Summary.Errors)
	}
	if !jsonOut {
		printOK("✓ ")
		printInfo("%s is valid\n", path)
	}
	return nil
}
