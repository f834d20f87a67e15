package dtstext

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

const sampleDTS = `/dts-v1/;

/memreserve/ 0x80000000 0x10000;

/ {
	#address-cells = <2>;
	#size-cells = <2>;
	model = "sample board";
	compatible = "vendor,board", "vendor,soc";

	clk: clock-controller@1000 {
		#clock-cells = <1>;
		reg = <0x0 0x1000 0x0 0x100>;
	};

	soc {
		/* ethernet controller */
		eth0: ethernet@4033c000 {
			reg = <0x0 0x4033c000 0x0 0x2000>;
			clocks = <&clk 3>, <&clk (2 + 2)>;
			clock-names = "stmmaceth", "pclk";
			local-mac-address = [00 11 22 33 44 55];
			dma-coherent;
			status = "okay";
		};
	};

	aliases {
		ethernet0 = &eth0;
	};
};
`

func TestParse_Sample(t *testing.T) {
	tree, err := Parse([]byte(sampleDTS))
	require.NoError(t, err)

	require.Equal(t, []ast.Reservation{{Address: 0x80000000, Size: 0x10000}}, tree.MemReserve)

	model, ok := tree.Root.Property("model").Value.AsString()
	require.True(t, ok)
	require.Equal(t, "sample board", model)
	require.Equal(t, ast.KindStrings, tree.Root.Property("compatible").Value.Kind)

	clk := tree.NodeByLabel("clk")
	require.NotNil(t, clk)
	require.Equal(t, uint32(1), clk.Phandle(), "referenced node gets the first free phandle")

	eth, err := ast.Resolve(tree, "/soc/ethernet@4033c000")
	require.NoError(t, err)
	require.Equal(t, []string{"eth0"}, eth.Labels)

	clocks := eth.Property("clocks").Value
	require.Equal(t, ast.KindCells, clocks.Kind)
	cells, ok := clocks.AsCells()
	require.True(t, ok)
	require.Equal(t, []uint32{1, 3, 1, 4}, cells)
	require.Len(t, clocks.Refs, 2)
	require.Equal(t, ast.Ref{Offset: 8, Target: "clk"}, clocks.Refs[1])

	mac := eth.Property("local-mac-address").Value
	require.Equal(t, ast.KindBytes, mac.Kind)
	require.Equal(t, []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, mac.Data)
	require.Equal(t, ast.KindEmpty, eth.Property("dma-coherent").Value.Kind)

	alias, ok := tree.FindNode("/aliases").Property("ethernet0").Value.AsString()
	require.True(t, ok)
	require.Equal(t, "/soc/ethernet@4033c000", alias)
}

func TestParse_ExplicitPhandleKept(t *testing.T) {
	src := `/dts-v1/;
/ {
	a: a { phandle = <0x20>; };
	b { ref = <&a>, <&{/c}>; };
	c { };
};`
	tree, err := Parse([]byte(src))
	require.NoError(t, err)
	cells, _ := tree.FindNode("/b").Property("ref").Value.AsCells()
	require.Equal(t, []uint32{0x20, 0x21}, cells)
	require.Equal(t, uint32(0x21), tree.FindNode("/c").Phandle())
}

func TestParse_ExtendAndDelete(t *testing.T) {
	src := `/dts-v1/;
/ {
	uart: serial@1 {
		status = "disabled";
		old;
		child { };
	};
	gone: gone { };
};

&uart {
	status = "okay";
	/delete-property/ old;
	/delete-node/ child;
};

/delete-node/ &gone;

/ {
	extra = <1>;
};
`
	tree, err := Parse([]byte(src))
	require.NoError(t, err)
	uart := tree.FindNode("/serial@1")
	status, _ := uart.Property("status").Value.AsString()
	require.Equal(t, "okay", status)
	require.False(t, uart.HasProperty("old"))
	require.Nil(t, uart.Child("child"))
	require.Nil(t, tree.FindNode("/gone"))
	require.True(t, tree.Root.HasProperty("extra"))
}

func TestParse_Mixed(t *testing.T) {
	src := `/dts-v1/;
/ { m = "ab", <0x1>, [ff]; b8 = /bits/ 8 <1 2 0xff>; e = <(1 << 4) (-1) 'A'>; };`
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	m := tree.Root.Property("m").Value
	require.Equal(t, ast.KindMixed, m.Kind)
	require.Equal(t, []byte{'a', 'b', 0, 0, 0, 0, 1, 0xff}, m.Data)
	require.Equal(t, []ast.Segment{
		{Kind: ast.KindString, Off: 0, Len: 3},
		{Kind: ast.KindCells, Off: 3, Len: 4},
		{Kind: ast.KindBytes, Off: 7, Len: 1},
	}, m.Segments)

	require.Equal(t, []byte{1, 2, 0xff}, tree.Root.Property("b8").Value.Data)

	cells, _ := tree.Root.Property("e").Value.AsCells()
	require.Equal(t, []uint32{16, 0xffffffff, 'A'}, cells)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"missing version", "/ { };", 1, "/dts-v1/"},
		{"undefined label", "/dts-v1/;\n/ {\n\tp = <&nope>;\n};", 3, "undefined"},
		{"undefined extension", "/dts-v1/;\n&nope { };", 2, "undefined"},
		{"unterminated string", "/dts-v1/;\n/ { s = \"abc; };", 2, "unterminated"},
		{"bad value", "/dts-v1/;\n/ {\n p = ;\n};", 3, "expected property value"},
		{"cell overflow", "/dts-v1/;\n/ { p = <0x100000000>; };", 2, "does not fit"},
		{"include", "/dts-v1/;\n/include/ \"x.dtsi\"", 2, "not supported"},
		{"unterminated node", "/dts-v1/;\n/ {\n a { };", 3, "end of input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			require.ErrorIs(t, err, types.ErrCodec)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			require.Equal(t, tt.line, pe.Line)
			require.Contains(t, pe.Msg, tt.msg)
		})
	}
}

func TestParse_UTF16BOM(t *testing.T) {
	src := "/dts-v1/;\n/ { model = \"x\"; };\n"
	utf16 := []byte{0xff, 0xfe}
	for _, r := range src {
		utf16 = append(utf16, byte(r), 0)
	}
	tree, err := Parse(utf16)
	require.NoError(t, err)
	model, _ := tree.Root.Property("model").Value.AsString()
	require.Equal(t, "x", model)

	withBOM := append([]byte{0xef, 0xbb, 0xbf}, src...)
	_, err = Parse(withBOM)
	require.NoError(t, err)
}

func TestRender_RoundTrip(t *testing.T) {
	tree, err := Parse([]byte(sampleDTS))
	require.NoError(t, err)

	out := Render(tree)
	text := string(out)
	require.True(t, strings.HasPrefix(text, "/dts-v1/;\n\n/memreserve/ 0x80000000 0x10000;\n"))
	require.Contains(t, text, "clocks = <&clk 0x03 &clk 0x04>;")
	require.Contains(t, text, "eth0: ethernet@4033c000 {")
	require.Contains(t, text, `compatible = "vendor,board", "vendor,soc";`)
	require.Contains(t, text, "local-mac-address = [00 11 22 33 44 55];")
	require.Contains(t, text, "\t\t\tdma-coherent;\n")

	again, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, string(out), string(Render(again)))
}

func TestRender_StaleReferencePrintsNumber(t *testing.T) {
	tree, err := Parse([]byte(sampleDTS))
	require.NoError(t, err)
	tree.NodeByLabel("clk").SetPhandle(7)

	out := string(Render(tree))
	require.Contains(t, out, "clocks = <0x01 0x03 0x01 0x04>;")
}

func TestRenderNode(t *testing.T) {
	tree, err := Parse([]byte(sampleDTS))
	require.NoError(t, err)
	out := string(RenderNode(tree, tree.NodeByLabel("clk")))
	require.Equal(t, "clk: clock-controller@1000 {\n\t#clock-cells = <0x01>;\n\treg = <0x00 0x1000 0x00 0x100>;\n\tphandle = <0x01>;\n};\n", out)
}

func TestQuote(t *testing.T) {
	require.Equal(t, `"a\"b\\c\n\x01"`, quote("a\"b\\c\n\x01"))
}
