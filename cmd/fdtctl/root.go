package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/joshuapare/fdtkit/internal/logger"
	"github.com/joshuapare/fdtkit/pkg/fdt"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "fdtctl",
	Short: "Extract device tree nodes for Xen passthrough",
	Long: `fdtctl extracts a device node and everything it references from a
host device tree and grafts it into a guest template, producing a partial
device tree for Xen dom0less passthrough. It also dumps, compiles and
validates device tree blobs and sources.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupColor(os.Stdout)
		if verbose {
			return logger.Init(logger.Options{Enabled: true, Level: slog.LevelDebug})
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%s\n", describeError(err))
		os.Exit(1)
	}
}

// describeError formats err as "<stage>: <reason>". Errors outside the
// pipeline carry no stage.
func describeError(err error) string {
	var se *fdt.StageError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}

// setupColor disables color unless stdout is a terminal and --no-color is
// not set.
func setupColor(out *os.File) {
	color.NoColor = noColor || (!isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()))
}

// Helper functions for output

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printOK prints a highlighted success line if not in quiet mode
func printOK(format string, args ...any) {
	if !quiet {
		okColor.Fprintf(os.Stdout, format, args...)
	}
}

// printWarn prints a highlighted warning line if not in quiet mode
func printWarn(format string, args ...any) {
	if !quiet {
		warnColor.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	errColor.Fprint(os.Stderr, "Error: ")
	fmt.Fprintf(os.Stderr, format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// loadTree loads a blob or source file for inspection commands.
func loadTree(path string) (*fdt.Tree, error) {
	printVerbose("Loading %s\n", path)
	tree, err := fdt.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return tree, nil
}
