package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/fdtkit/pkg/fdt"
)

var (
	refsConfig string
	refsAll    bool
)

func init() {
	cmd := newRefsCmd()
	cmd.Flags().StringVar(&refsConfig, "config", "", "YAML passthrough profile (reference table and external phandles)")
	cmd.Flags().BoolVar(&refsAll, "all", false, "List every occurrence, including repeats of the same target in a property")
	rootCmd.AddCommand(cmd)
}

func newRefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs <file> <path>",
		Short: "List the references of a node and the nodes it pulls in",
		Long: `The refs command lists every phandle reference held by the node at
<path> and its descendants, followed by the closure: the nodes outside the
subtree that a passthrough of <path> would pull in. Repeated references to
the same target from one property are listed once unless --all is given.

Example:
  fdtctl refs host.dtb /soc/ethernet@4033c000
  fdtctl refs host.dtb '&fec1' --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs(args)
		},
	}
	return cmd
}

type refEntry struct {
	Node     string `json:"node"`
	Property string `json:"property"`
	Index    int    `json:"index"`
	Phandle  uint32 `json:"phandle"`
	Target   string `json:"target,omitempty"`
	External bool   `json:"external,omitempty"`
}

func runRefs(args []string) error {
	opts := fdt.DefaultOptions()
	if refsConfig != "" {
		var err error
		if opts, err = fdt.LoadProfile(refsConfig); err != nil {
			return err
		}
	}
	tree, err := loadTree(args[0])
	if err != nil {
		return err
	}
	n, err := fdt.FindNode(tree, args[1])
	if err != nil {
		return err
	}

	found, err := fdt.References(tree, n, opts)
	if err != nil {
		return err
	}
	if !refsAll {
		found = fdt.DedupReferences(found)
	}
	closure, err := fdt.Closure(tree, n, opts)
	if err != nil {
		return err
	}

	entries := make([]refEntry, 0, len(found))
	for _, r := range found {
		e := refEntry{Node: r.Node.Path(), Property: r.Property, Index: r.Index, Phandle: r.Phandle}
		if r.Target != nil {
			e.Target = r.Target.Path()
		} else {
			e.External = true
		}
		entries = append(entries, e)
	}
	pulled := make([]string, 0, len(closure))
	for _, p := range closure {
		pulled = append(pulled, p.Path())
	}

	if jsonOut {
		return printJSON(map[string]any{
			"node":       n.Path(),
			"references": entries,
			"closure":    pulled,
		})
	}

	printInfo("References from %s:\n", n.Path())
	if len(entries) == 0 {
		printInfo("  (none)\n")
	}
	for _, e := range entries {
		target := e.Target
		if e.External {
			target = "(external)"
		}
		printInfo("  %s:%s[%d] -> 0x%x %s\n", e.Node, e.Property, e.Index, e.Phandle, target)
	}
	printInfo("\nClosure (%d nodes):\n", len(pulled))
	for _, p := range pulled {
		printInfo("  %s\n", p)
	}
	return nil
}
