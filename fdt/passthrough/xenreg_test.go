package passthrough

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/fdtkit/pkg/types"
)

func TestXenReg(t *testing.T) {
	tests := []struct {
		name string
		src  string
		node string
		want []uint32
		skip bool
	}{
		{
			name: "unaligned single cell region",
			src:  `/ { #address-cells = <1>; #size-cells = <1>; dev@4033c800 { reg = <0x4033c800 0x100>; }; };`,
			node: "/dev@4033c800",
			want: []uint32{0x4033c000, 0x1000, 0x4033c000},
		},
		{
			name: "region crossing a page boundary",
			src:  `/ { #address-cells = <1>; #size-cells = <1>; dev { reg = <0x1ff0 0x20>; }; };`,
			node: "/dev",
			want: []uint32{0x1000, 0x2000, 0x1000},
		},
		{
			name: "several entries",
			src:  `/ { #address-cells = <1>; #size-cells = <1>; dev { reg = <0x1000 0x1000>, <0x5000 0x10>; }; };`,
			node: "/dev",
			want: []uint32{0x1000, 0x1000, 0x1000, 0x5000, 0x1000, 0x5000},
		},
		{
			name: "default widths",
			src:  `/ { dev { reg = <0x0 0x2000 0x800>; }; };`,
			node: "/dev",
			want: []uint32{0x0, 0x2000, 0x1000, 0x0, 0x2000},
		},
		{
			name: "widths inherited from ancestor",
			src:  `/ { #address-cells = <1>; #size-cells = <1>; bus { dev { reg = <0x3000 0x10>; }; }; };`,
			node: "/bus/dev",
			want: []uint32{0x3000, 0x1000, 0x3000},
		},
		{
			name: "no size cells",
			src:  `/ { bus { #address-cells = <1>; #size-cells = <0>; dev@0 { reg = <0>; }; }; };`,
			node: "/bus/dev@0",
			skip: true,
		},
		{
			name: "no reg",
			src:  `/ { dev { status = "okay"; }; };`,
			node: "/dev",
			skip: true,
		},
		{
			name: "memory region re-encoded",
			src: `/ {
	#address-cells = <1>; #size-cells = <1>;
	resmem { #address-cells = <2>; #size-cells = <2>; buf: buf { reg = <0x0 0x80000000 0x0 0x10>; }; };
	dev { reg = <0x1000 0x10>; memory-region = <&buf>; };
};`,
			node: "/dev",
			want: []uint32{0x1000, 0x1000, 0x1000, 0x80000000, 0x1000, 0x80000000},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parseInline(t, tt.src)
			n := tree.FindNode(tt.node)
			require.NotNil(t, n)

			v, ok, err := xenReg(tree, n, DefaultPageSize)
			require.NoError(t, err)
			if tt.skip {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			cells, _ := v.AsCells()
			require.Equal(t, tt.want, cells)
		})
	}
}

func TestXenReg_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind error
	}{
		{
			name: "overflow of one address cell",
			src:  `/ { #address-cells = <1>; #size-cells = <1>; dev { reg = <0xfffff000 0xffffffff>; }; };`,
			kind: types.ErrMalformedProperty,
		},
		{
			name: "ragged reg",
			src:  `/ { #address-cells = <2>; #size-cells = <2>; dev { reg = <0x0 0x1000 0x0>; }; };`,
			kind: types.ErrMalformedProperty,
		},
		{
			name: "wide cells",
			src:  `/ { #address-cells = <3>; #size-cells = <1>; dev { reg = <0x0 0x0 0x1000 0x10>; }; };`,
			kind: types.ErrMalformedProperty,
		},
		{
			name: "dangling memory region",
			src:  `/ { #address-cells = <1>; #size-cells = <1>; dev { reg = <0x1000 0x10>; memory-region = <0x77>; }; };`,
			kind: types.ErrDanglingReference,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parseInline(t, tt.src)
			_, _, err := xenReg(tree, tree.FindNode("/dev"), DefaultPageSize)
			require.ErrorIs(t, err, tt.kind)
		})
	}
}
