package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrKind
		expected string
	}{
		{ErrKindNodeNotFound, "NodeNotFound"},
		{ErrKindDanglingReference, "DanglingReference"},
		{ErrKindMalformedProperty, "MalformedProperty"},
		{ErrKindCodec, "CodecError"},
		{ErrKindConfig, "ConfigError"},
		{ErrKind(99), "ErrKind(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("ErrKind(%d).String() = %q, want %q", int(tt.kind), got, tt.expected)
		}
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("closure: %w", DanglingReference("/soc/eth", "clocks", 0x99))
	if !errors.Is(err, ErrDanglingReference) {
		t.Error("errors.Is should match by kind through wrapping")
	}
	if errors.Is(err, ErrNodeNotFound) {
		t.Error("errors.Is should not match another kind")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrKindDanglingReference {
		t.Errorf("KindOf = %v, %v", kind, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf of a plain error should report false")
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "node not found",
			err:  NodeNotFound("/soc/ethernet@9999", "ethernet@9999", 1),
			want: "ethernet@9999",
		},
		{
			name: "dangling reference",
			err:  DanglingReference("/soc/eth", "clocks", 0x99),
			want: "(node /soc/eth, property clocks)",
		},
		{
			name: "malformed property",
			err:  MalformedProperty("/dev", "reg", "%d cells", 3),
			want: "3 cells (node /dev, property reg)",
		},
		{
			name: "codec",
			err:  Codec("parse dts", errors.New("1:2: boom")),
			want: "parse dts: 1:2: boom",
		},
		{
			name: "config",
			err:  Config("page size 0x%x", 3000),
			want: "invalid configuration: page size 0xbb8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", got, tt.want)
			}
		})
	}

	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Error("nil *Error should render as <nil>")
	}
}

func TestNodeNotFoundFields(t *testing.T) {
	err := NodeNotFound("/soc/ethernet@9999", "ethernet@9999", 1)
	if err.Segment != "ethernet@9999" || err.Position != 1 {
		t.Errorf("unexpected fields %+v", err)
	}
}

func TestStageError(t *testing.T) {
	inner := DanglingReference("/dev", "clocks", 7)
	err := &StageError{Stage: StageClosureComputed, Err: inner}

	if !strings.HasPrefix(err.Error(), "closure: ") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrDanglingReference) {
		t.Error("StageError should unwrap to its cause")
	}

	var se *StageError
	if !errors.As(fmt.Errorf("run: %w", err), &se) || se.Stage != StageClosureComputed {
		t.Error("errors.As should find the StageError")
	}
}

func TestStage_String(t *testing.T) {
	want := []string{"load", "resolve", "merge", "closure", "finalize", "render"}
	for i, w := range want {
		if got := Stage(i).String(); got != w {
			t.Errorf("Stage(%d) = %q, want %q", i, got, w)
		}
	}
	if got := Stage(42).String(); got != "stage(42)" {
		t.Errorf("Stage(42) = %q", got)
	}
}

func TestDiagnosticReport(t *testing.T) {
	r := NewDiagnosticReport()
	r.Source = "board.dtb"
	r.Nodes = 3
	if r.HasAnyIssues() {
		t.Fatal("new report should be empty")
	}
	if !strings.Contains(r.FormatTextCompact(), "No issues found.") {
		t.Error("empty compact report should say so")
	}

	r.Add(Diagnostic{Severity: SevWarning, Category: DiagStructure, Path: "/soc", Issue: "missing #size-cells"})
	r.Add(Diagnostic{Severity: SevError, Category: DiagReference, Path: "/dev", Property: "clocks", Issue: "dangling phandle 0x99"})
	r.Finalize()

	if !r.HasErrors() || r.Summary.Errors != 1 || r.Summary.Warnings != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if r.Diagnostics[0].Path != "/dev" {
		t.Errorf("Finalize should order by path, got %s first", r.Diagnostics[0].Path)
	}

	text := r.FormatText()
	for _, want := range []string{"Source:    board.dtb", "ERROR (1)", "WARNING (1)", "Property: clocks"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report lacks %q:\n%s", want, text)
		}
	}
	compact := r.FormatTextCompact()
	if !strings.Contains(compact, "/dev:clocks: dangling phandle 0x99") {
		t.Errorf("compact report = %q", compact)
	}

	js, err := r.FormatJSON()
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	if !strings.Contains(js, `"severity": "ERROR"`) || !strings.Contains(js, `"category": "REFERENCE"`) {
		t.Errorf("JSON report = %s", js)
	}
}
