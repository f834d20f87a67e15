package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fdtkit/pkg/fdt"
)

var (
	ptInput        string
	ptTemplate     string
	ptNode         string
	ptOutput       string
	ptConfig       string
	ptContainer    string
	ptContainerSet bool
	ptFormat       string
	ptDiff         bool
)

func init() {
	cmd := newPassthroughCmd()
	cmd.Flags().StringVarP(&ptInput, "input", "i", "", "Source device tree (.dtb or .dts)")
	cmd.Flags().StringVarP(&ptTemplate, "template", "t", "", "Guest template (.dts or .dtb)")
	cmd.Flags().StringVarP(&ptNode, "node", "n", "", "Path or &label of the node to pass through")
	cmd.Flags().StringVarP(&ptOutput, "output", "o", "passthrough.dts", "Output file")
	cmd.Flags().StringVar(&ptConfig, "config", "", "YAML passthrough profile")
	cmd.Flags().StringVar(&ptContainer, "container", "", "Container path for grafted nodes (empty mirrors source paths)")
	cmd.Flags().StringVar(&ptFormat, "output-format", "", "Output format: dts or dtb (default from the output extension)")
	cmd.Flags().BoolVar(&ptDiff, "diff", false, "Print a line diff from the template to the output")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("node")
	rootCmd.AddCommand(cmd)
}

func newPassthroughCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passthrough -i <source> -t <template> -n <path> [-o <output>]",
		Short: "Extract a node and its dependencies into a guest device tree",
		Long: `The passthrough command copies the node at --node from the source tree
into a copy of the template, together with every node it references
(clocks, resets, PHYs, memory regions, ...). Phandles that collide with
template phandles are renumbered and Xen markers are added.

Nothing is written unless every stage succeeds.

Example:
  fdtctl passthrough -i host.dtb -t guest.dts -n /soc/ethernet@4033c000
  fdtctl passthrough -i host.dtb -t guest.dts -n '&fec1' -o fec1.dtb
  fdtctl passthrough -i host.dtb -t guest.dts -n '&fec1' --container "" --diff
  fdtctl passthrough -i host.dtb -t guest.dts -n /soc/uart@5a060000 --config xen.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ptContainerSet = cmd.Flags().Changed("container")
			return runPassthrough()
		},
	}
	return cmd
}

func runPassthrough() error {
	opts, format, err := passthroughOptions()
	if err != nil {
		return &fdt.StageError{Stage: fdt.StageLoaded, Err: err}
	}

	printVerbose("Loading source %s\n", ptInput)
	src, err := fdt.LoadFile(ptInput)
	if err != nil {
		return &fdt.StageError{Stage: fdt.StageLoaded, Err: err}
	}
	if ptTemplate == "" {
		return &fdt.StageError{Stage: fdt.StageLoaded, Err: fdt.ConfigError("no template device tree given")}
	}
	printVerbose("Loading template %s\n", ptTemplate)
	tmpl, err := fdt.LoadTemplate(ptTemplate)
	if err != nil {
		return &fdt.StageError{Stage: fdt.StageLoaded, Err: err}
	}

	res, err := fdt.Passthrough(src, tmpl, ptNode, opts)
	if err != nil {
		return err
	}
	if err := fdt.WriteFile(res.Tree, ptOutput, format); err != nil {
		return &fdt.StageError{Stage: fdt.StageRendered, Err: err}
	}

	pulled := make([]string, 0, len(res.Pulled))
	for _, p := range res.Pulled {
		pulled = append(pulled, p.Path())
	}

	if jsonOut {
		return printJSON(passthroughSummary{
			Source:   ptInput,
			Template: ptTemplate,
			Node:     res.Root.Path(),
			Output:   ptOutput,
			Format:   format.Resolve(ptOutput).String(),
			Pulled:   pulled,
			Phandles: renumbered(res.Placement.Phandles),
		})
	}

	if ptDiff {
		printDiff(fdt.DiffTrees(tmpl, res.Tree))
	}
	printOK("✓ ")
	printInfo("Wrote %s (%s as %s)\n", ptOutput, ptNode, res.Root.Path())
	for _, p := range pulled {
		printInfo("  + %s\n", p)
	}
	for _, r := range renumbered(res.Placement.Phandles) {
		printWarn("  phandle 0x%x renumbered to 0x%x\n", r.From, r.To)
	}
	return nil
}

// passthroughOptions builds options from the profile and command flags.
func passthroughOptions() (fdt.Options, fdt.Format, error) {
	opts := fdt.DefaultOptions()
	if ptConfig != "" {
		printVerbose("Loading profile %s\n", ptConfig)
		var err error
		if opts, err = fdt.LoadProfile(ptConfig); err != nil {
			return fdt.Options{}, fdt.FormatAuto, err
		}
	}
	if ptContainerSet {
		opts.Container = ptContainer
	}
	format, err := fdt.ParseFormat(ptFormat)
	if err != nil {
		return fdt.Options{}, fdt.FormatAuto, err
	}
	return opts, format, nil
}

type passthroughSummary struct {
	Source   string          `json:"source"`
	Template string          `json:"template,omitempty"`
	Node     string          `json:"node"`
	Output   string          `json:"output"`
	Format   string          `json:"format"`
	Pulled   []string        `json:"pulled"`
	Phandles []phandleChange `json:"renumbered,omitempty"`
}

type phandleChange struct {
	From uint32 `json:"from"`
	To   uint32 `json:"to"`
}

// renumbered returns the phandles whose output value differs, by source value.
func renumbered(m map[uint32]uint32) []phandleChange {
	var out []phandleChange
	for from, to := range m {
		if from != to {
			out = append(out, phandleChange{From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

func printDiff(diff string) {
	if quiet || diff == "" {
		return
	}
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			okColor.Fprint(os.Stdout, line)
		case strings.HasPrefix(line, "- "):
			errColor.Fprint(os.Stdout, line)
		default:
			fmt.Fprint(os.Stdout, line)
		}
	}
	fmt.Fprintln(os.Stdout)
}
