/*
Package fdt provides a high-level, file-oriented API for device tree
passthrough.

# Quick Start

Extract a node from a board blob into a Xen partial device tree:

	err := fdt.PassthroughFile("board.dtb", "template.dts",
	    "/soc/ethernet@4033c000", "passthrough.dts", nil)

# Features

  - Blob (.dtb) and source (.dts) input, detected by content
  - Non-destructive merge into a template: template values always win
  - Transitive pulling of clocks, resets, interrupt parents and other
    referenced nodes
  - Phandle renumbering on collision with template phandles
  - xen,reg generation with page rounding
  - Atomic output writes: a failed run never leaves a partial file
  - Whole-tree validation with a diagnostic report

# Basic Usage

Load the inputs yourself and inspect the result:

	src, err := fdt.LoadFile("board.dtb")
	if err != nil {
	    log.Fatal(err)
	}
	tmpl, err := fdt.LoadTemplate("template.dts")
	if err != nil {
	    log.Fatal(err)
	}
	res, err := fdt.Passthrough(src, tmpl, "/soc/ethernet@4033c000", fdt.DefaultOptions())
	if err != nil {
	    log.Fatal(err)
	}
	for _, n := range res.Pulled {
	    fmt.Println("pulled", n.Path())
	}
	os.Stdout.Write(fdt.RenderDTS(res.Tree))

Use a YAML profile instead of the Xen defaults:

	opts, err := fdt.LoadProfile("profile.yaml")
	err = fdt.PassthroughFile("board.dtb", "", "/soc/uart@5a060000", "out.dtb", &opts)

Validate a tree:

	report, err := fdt.ValidateFile("board.dtb", fdt.DefaultCheckOptions())
	fmt.Print(report.FormatText())

# Error Handling

Every passthrough failure is a *StageError naming the pipeline stage, and
wraps a typed *Error whose kind errors.Is can match:

	_, err := fdt.Passthrough(src, tmpl, "/soc/missing", fdt.DefaultOptions())
	var se *fdt.StageError
	if errors.As(err, &se) {
	    fmt.Println("failed during", se.Stage)
	}
	if errors.Is(err, fdt.ErrNodeNotFound) {
	    // ...
	}
*/
package fdt
