package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fdtkit/pkg/fdt"
)

var (
	compileOutput string
	compileFormat string
)

func init() {
	cmd := newCompileCmd()
	cmd.Flags().StringVarP(&compileOutput, "output", "o", "", "Output file (default: input with .dtb extension)")
	cmd.Flags().StringVar(&compileFormat, "output-format", "", "Output format: dts or dtb (default from the output extension)")
	rootCmd.AddCommand(cmd)
}

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <in.dts> [-o <out.dtb>]",
		Short: "Compile device tree source into a blob",
		Long: `The compile command converts between device tree source and blobs. By
default it reads source text and writes a version 17 blob next to it.

Example:
  fdtctl compile guest.dts
  fdtctl compile guest.dts -o guest.dtb
  fdtctl compile host.dtb -o host.dts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args)
		},
	}
	return cmd
}

func runCompile(args []string) error {
	in := args[0]
	out := compileOutput
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".dtb"
	}
	format, err := fdt.ParseFormat(compileFormat)
	if err != nil {
		return err
	}

	tree, err := loadTree(in)
	if err != nil {
		return err
	}
	if err := fdt.WriteFile(tree, out, format); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"input":  in,
			"output": out,
			"format": format.Resolve(out).String(),
		})
	}
	printOK("✓ ")
	printInfo("Wrote %s\n", out)
	return nil
}
