package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fdtkit/pkg/fdt"
)

var dumpNode string

func init() {
	cmd := newDumpCmd()
	cmd.Flags().StringVar(&dumpNode, "node", "", "Dump only the subtree at this path or &label")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Render a device tree blob or source as text",
		Long: `The dump command loads a .dtb or .dts file and prints it as device tree
source. Use --node to print a single subtree.

Example:
  fdtctl dump host.dtb
  fdtctl dump host.dtb --node /soc/ethernet@4033c000
  fdtctl dump host.dtb --node '&fec1' --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	return cmd
}

func runDump(args []string) error {
	tree, err := loadTree(args[0])
	if err != nil {
		return err
	}

	var text []byte
	path := "/"
	if dumpNode != "" {
		n, err := fdt.FindNode(tree, dumpNode)
		if err != nil {
			return err
		}
		path = n.Path()
		text = fdt.RenderNodeDTS(tree, n)
	} else {
		text = fdt.RenderDTS(tree)
	}

	if jsonOut {
		return printJSON(map[string]any{
			"file": args[0],
			"node": path,
			"dts":  string(text),
		})
	}
	_, err = fmt.Fprint(os.Stdout, string(text))
	return err
}
