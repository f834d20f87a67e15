package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// -----------------------------------------------------------------------------
// Diagnostic System
// -----------------------------------------------------------------------------
//
// A check walks a whole tree and records every issue instead of stopping at
// the first error. Reports render as JSON, a sectioned text report, or one
// line per issue.

// Severity classifies how serious a diagnostic issue is.
type Severity int

const (
	SevInfo    Severity = iota // Informational (unusual but valid)
	SevWarning                 // Consumers apply a fallback or may misbehave
	SevError                   // The tree cannot be passed through or booted as is
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the severity name in JSON reports.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DiagCategory classifies the type of issue found.
type DiagCategory int

const (
	DiagStructure DiagCategory = iota // node layout, names, cell declarations
	DiagReference                     // phandles and reference-bearing properties
	DiagLimits                        // structural limits exceeded
)

func (c DiagCategory) String() string {
	switch c {
	case DiagStructure:
		return "STRUCTURE"
	case DiagReference:
		return "REFERENCE"
	case DiagLimits:
		return "LIMITS"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the category name in JSON reports.
func (c DiagCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Diagnostic is a single issue found in a tree.
type Diagnostic struct {
	Severity Severity     `json:"severity"`
	Category DiagCategory `json:"category"`
	Path     string       `json:"path"`
	Property string       `json:"property,omitempty"`
	Issue    string       `json:"issue"`
	Expected any          `json:"expected,omitempty"`
	Actual   any          `json:"actual,omitempty"`
}

// DiagnosticReport collects all diagnostics found during a check.
type DiagnosticReport struct {
	// Metadata
	Source string `json:"source,omitempty"`
	Nodes  int    `json:"nodes"`

	// Issues
	Diagnostics []Diagnostic `json:"diagnostics"`

	// Summary statistics
	Summary DiagSummary `json:"summary"`

	BySeverity map[Severity][]Diagnostic `json:"-"`
}

// DiagSummary provides quick statistics.
type DiagSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// NewDiagnosticReport creates an empty report.
func NewDiagnosticReport() *DiagnosticReport {
	return &DiagnosticReport{
		Diagnostics: make([]Diagnostic, 0),
		BySeverity:  make(map[Severity][]Diagnostic),
	}
}

// Add adds a diagnostic to the report and updates the summary.
func (r *DiagnosticReport) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)

	switch d.Severity {
	case SevError:
		r.Summary.Errors++
	case SevWarning:
		r.Summary.Warnings++
	case SevInfo:
		r.Summary.Info++
	}
	r.BySeverity[d.Severity] = append(r.BySeverity[d.Severity], d)
}

// Finalize orders diagnostics by node path, keeping discovery order within
// a node.
func (r *DiagnosticReport) Finalize() {
	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		return r.Diagnostics[i].Path < r.Diagnostics[j].Path
	})
	for sev, diags := range r.BySeverity {
		sort.SliceStable(diags, func(i, j int) bool { return diags[i].Path < diags[j].Path })
		r.BySeverity[sev] = diags
	}
}

// HasErrors returns true if any errors were found.
func (r *DiagnosticReport) HasErrors() bool {
	return r.Summary.Errors > 0
}

// HasAnyIssues returns true if any issues were found (including warnings and info).
func (r *DiagnosticReport) HasAnyIssues() bool {
	return len(r.Diagnostics) > 0
}

// -----------------------------------------------------------------------------
// Output Formatters
// -----------------------------------------------------------------------------

// FormatJSON returns the report as formatted JSON (2-space indentation).
func (r *DiagnosticReport) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatText returns a human-readable text report.
func (r *DiagnosticReport) FormatText() string {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 79) + "\n")
	b.WriteString("Device Tree Diagnostic Report\n")
	b.WriteString(strings.Repeat("=", 79) + "\n\n")

	if r.Source != "" {
		fmt.Fprintf(&b, "Source:    %s\n", r.Source)
	}
	fmt.Fprintf(&b, "Nodes:     %d\n\n", r.Nodes)

	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	fmt.Fprintf(&b, "  Errors:   %d\n", r.Summary.Errors)
	fmt.Fprintf(&b, "  Warnings: %d\n", r.Summary.Warnings)
	fmt.Fprintf(&b, "  Info:     %d\n\n", r.Summary.Info)

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	b.WriteString("DIAGNOSTICS\n")
	b.WriteString(strings.Repeat("-", 79) + "\n\n")

	for _, severity := range []Severity{SevError, SevWarning, SevInfo} {
		diags := r.BySeverity[severity]
		if len(diags) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s (%d)\n", severity, len(diags))
		b.WriteString(strings.Repeat("~", 79) + "\n")

		for i, d := range diags {
			fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, d.Category, d.Path)
			if d.Property != "" {
				fmt.Fprintf(&b, "   Property: %s\n", d.Property)
			}
			fmt.Fprintf(&b, "   %s\n", d.Issue)
			if d.Expected != nil {
				fmt.Fprintf(&b, "   Expected: %v\n", d.Expected)
			}
			if d.Actual != nil {
				fmt.Fprintf(&b, "   Actual:   %v\n", d.Actual)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatTextCompact returns a compact one-line-per-issue text format.
func (r *DiagnosticReport) FormatTextCompact() string {
	var b strings.Builder

	for _, d := range r.Diagnostics {
		where := d.Path
		if d.Property != "" {
			where += ":" + d.Property
		}
		fmt.Fprintf(&b, "%-7s [%s] %s: %s\n", d.Severity, d.Category, where, d.Issue)
	}

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
	}

	return b.String()
}
