package check

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/fdtkit/internal/dtstext"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

func parse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := dtstext.Parse([]byte("/dts-v1/;\n" + src))
	require.NoError(t, err)
	return tree
}

// issues flattens a report into "SEVERITY path[:prop] issue" lines.
func issues(r *types.DiagnosticReport) []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		where := d.Path
		if d.Property != "" {
			where += ":" + d.Property
		}
		out = append(out, d.Severity.String()+" "+where+" "+d.Issue)
	}
	return out
}

func TestCheck_SampleIsClean(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample", "source.dts"))
	require.NoError(t, err)
	tree, err := dtstext.Parse(data)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Source = "source.dts"
	r := Check(tree, opts)
	require.False(t, r.HasErrors(), "%v", issues(r))
	require.Equal(t, "source.dts", r.Source)
	require.Greater(t, r.Nodes, 10)
}

func TestCheck_References(t *testing.T) {
	tree := parse(t, `/ {
	clk: clk { #clock-cells = <1>; };
	a { clocks = <0x99>; };
	b { clocks = <&clk>; };
	c { interrupt-parent = <0xfde8>; };
};`)
	r := Check(tree, DefaultOptions())
	got := issues(r)
	require.Len(t, got, 3, "%v", got)
	require.Contains(t, got[0], "ERROR /a:clocks dangling reference to phandle 0x99")
	require.Contains(t, got[1], "ERROR /b:clocks")
	require.Contains(t, got[1], "needs 1 argument cells")
	require.Contains(t, got[2], "ERROR /c:interrupt-parent")

	opts := DefaultOptions()
	opts.External = map[uint32]int{65000: 3}
	r = Check(tree, opts)
	require.Equal(t, 2, r.Summary.Errors, "external phandles resolve")
}

func TestCheck_Phandles(t *testing.T) {
	// The text parser rejects duplicate phandles, so build the tree directly.
	tree := ast.NewTree()
	tree.Root.AddChild("a").SetPhandle(1)
	tree.Root.AddChild("b").SetPhandle(1)
	c := tree.Root.AddChild("c")
	c.SetProperty(ast.PropLinuxPhandle, ast.Cells(2))
	c.SetProperty(ast.PropPhandle, ast.Cells(3))
	tree.Root.AddChild("d").SetProperty("clocks", ast.Cells(0x99))
	tree.Root.AddChild("e").SetProperty(ast.PropPhandle, ast.Cells(0))

	r := Check(tree, DefaultOptions())
	got := issues(r)
	require.Len(t, got, 4, "%v", got)
	require.Equal(t, "INFO / reference checks skipped until phandle errors are fixed", got[0])
	require.Equal(t, "ERROR /b:phandle phandle 0x1 already used by /a", got[1])
	require.Contains(t, got[2], "ERROR /c:linux,phandle")
	require.Equal(t, "ERROR /e:phandle phandle must be one cell in 1..0xfffffffe", got[3])
}

func TestCheck_Reg(t *testing.T) {
	tree := parse(t, `/ {
	#address-cells = <1>;
	#size-cells = <1>;
	ok@1000 { reg = <0x1000 0x10>; };
	ragged@2000 { reg = <0x2000 0x10 0x1>; };
	mismatch@3000 { reg = <0x4000 0x10>; };
	nounit { reg = <0x5000 0x10>; };
	noreg@6000 { };
	bus@7000 {
		ranges;
		child@0 { reg = <0x0 0x10>; };
		other@10 { reg = <0x10 0x10>; };
	};
	multi@1,2 { reg = <0x1 0x4>; };
};`)
	r := Check(tree, DefaultOptions())
	got := issues(r)
	want := []string{
		"WARNING /bus@7000 parent of a node with reg should declare",
		"WARNING /mismatch@3000 unit address does not match",
		"WARNING /noreg@6000 node has a unit address but no reg",
		"WARNING /nounit node has a reg property but no unit address",
		"ERROR /ragged@2000:reg cells do not divide",
	}
	require.Len(t, got, len(want), "%v", got)
	for i, w := range want {
		require.True(t, strings.HasPrefix(got[i], w), "got %q, want prefix %q", got[i], w)
	}
	require.Equal(t, "4000", r.Diagnostics[1].Expected)
}

func TestCheck_Limits(t *testing.T) {
	long := strings.Repeat("n", 40)
	tree := parse(t, `/ {
	`+long+` { };
	dev {
		`+strings.Repeat("p", 40)+`;
		big = [00 01 02 03 04 05 06 07 08];
		a; b; c;
	};
};`)
	opts := DefaultOptions()
	opts.Limits.MaxValueSize = 8
	opts.Limits.MaxProperties = 4
	r := Check(tree, opts)

	var limits []types.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Category == types.DiagLimits {
			limits = append(limits, d)
		}
	}
	require.Len(t, limits, 4, "%v", issues(r))
	require.Equal(t, 2, r.Summary.Warnings)
	require.Equal(t, 2, r.Summary.Errors)

	r = Check(tree, Options{})
	require.False(t, r.HasAnyIssues(), "zero limits disable limit checks: %v", issues(r))
}

func TestCheck_TreeLimits(t *testing.T) {
	tree := parse(t, `/ { a { b { c { }; }; }; };`)
	opts := Options{Limits: ast.Limits{MaxTreeDepth: 3, MaxTotalSize: 32}}
	r := Check(tree, opts)
	require.Equal(t, 2, r.Summary.Errors, "%v", issues(r))
	require.Equal(t, 3, r.Diagnostics[0].Expected)
	require.Equal(t, 4, r.Diagnostics[0].Actual)
}
