package fdt

import "github.com/joshuapare/fdtkit/fdt/check"

// ValidateTree checks t and returns a report of every issue found.
func ValidateTree(t *Tree, opts CheckOptions) *DiagnosticReport {
	return check.Check(t, opts)
}

// ValidateFile loads a blob or source file and checks it. Load failures are
// returned as errors; tree issues go into the report.
//
// Example:
//
//	report, err := fdt.ValidateFile("board.dtb", fdt.DefaultCheckOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if report.HasErrors() {
//	    fmt.Print(report.FormatText())
//	}
func ValidateFile(path string, opts CheckOptions) (*DiagnosticReport, error) {
	t, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if opts.Source == "" {
		opts.Source = path
	}
	return check.Check(t, opts), nil
}
