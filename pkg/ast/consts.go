package ast

import "errors"

// PathSeparator separates node names in absolute device tree paths.
const PathSeparator = "/"

// LabelPrefix introduces a label reference in a path ("&uart0/child").
const LabelPrefix = "&"

// Property names with structural meaning.
const (
	PropPhandle      = "phandle"
	PropLinuxPhandle = "linux,phandle"
	PropAddressCells = "#address-cells"
	PropSizeCells    = "#size-cells"
	PropReg          = "reg"
	PropCompatible   = "compatible"
)

// SymbolsNode is the root child that maps labels to paths in blobs built
// with symbols enabled.
const SymbolsNode = "__symbols__"

// Defaults applied by consumers when a parent omits its cell declarations.
const (
	DefaultAddressCells = 2
	DefaultSizeCells    = 1
)

// InvalidPhandle is reserved and never names a node.
const InvalidPhandle = 0xffffffff

var errStopWalk = errors.New("ast: stop walk")
