package passthrough

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/joshuapare/fdtkit/fdt/refs"
	"github.com/joshuapare/fdtkit/internal/logger"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

const (
	// DefaultContainer is where grafted nodes land in the output tree.
	DefaultContainer = "/passthrough"

	// DefaultPageSize is the mapping granularity for xen,reg rounding.
	DefaultPageSize = 0x1000

	// XenGICPhandle is the phandle Xen gives the guest interrupt controller.
	XenGICPhandle = 65000

	// PathPlaceholder in a string marker is replaced by the source path of the
	// grafted root.
	PathPlaceholder = "{path}"

	xenGICInterruptCells = 3
	xenRegProperty       = "xen,reg"
	memoryRegionProperty = "memory-region"
)

// Marker is a property written onto the grafted root or its container when
// the output does not define it already.
type Marker struct {
	Name  string
	Value ast.Value
}

// StringMarker returns a string-valued marker. The value may contain
// PathPlaceholder.
func StringMarker(name, value string) Marker {
	return Marker{Name: name, Value: ast.String(value)}
}

// FlagMarker returns an empty (boolean) marker.
func FlagMarker(name string) Marker {
	return Marker{Name: name, Value: ast.Empty()}
}

// CellsMarker returns a cell-array marker.
func CellsMarker(name string, cells ...uint32) Marker {
	return Marker{Name: name, Value: ast.Cells(cells...)}
}

// Options configures a passthrough run.
//
// Use DefaultOptions() for the Xen dom0less conventions. The zero value
// mirrors source paths and writes no markers.
type Options struct {
	// Container is the output path that receives grafted nodes. Empty places
	// every grafted node at its source path instead.
	// Default: "/passthrough"
	Container string

	// RootMarkers are added to the grafted root.
	// Default: xen,path = "{path}" and xen,force-assign-without-iommu
	RootMarkers []Marker

	// ContainerMarkers are added to the grafted root's parent.
	// Default: compatible = "simple-bus" and ranges
	ContainerMarkers []Marker

	// XenReg generates xen,reg for the grafted root and its descendants
	// from their reg and memory-region properties.
	// Default: true
	XenReg bool

	// PageSize is the xen,reg rounding granularity; a power of two.
	// Default: 0x1000
	PageSize uint64

	// Strip lists regular expressions for source properties that are never
	// copied or followed.
	// Default: ["^pinctrl-"]
	Strip []string

	// External maps phandles provided by the passthrough consumer to the
	// number of specifier cells they take. References to them need no node.
	// Default: {65000: 3}
	External map[uint32]int

	// References adds reference-bearing properties to the scanner table,
	// mapped to the #<x>-cells property sizing their specifiers ("" for a
	// plain phandle list). A leading "*" matches by suffix.
	References map[string]string

	// Logger receives per-stage debug records. Nil uses the process logger.
	Logger *slog.Logger
}

// DefaultOptions returns the Xen dom0less passthrough profile.
func DefaultOptions() Options {
	return Options{
		Container: DefaultContainer,
		RootMarkers: []Marker{
			StringMarker("xen,path", PathPlaceholder),
			FlagMarker("xen,force-assign-without-iommu"),
		},
		ContainerMarkers: []Marker{
			StringMarker(ast.PropCompatible, "simple-bus"),
			FlagMarker("ranges"),
		},
		XenReg:   true,
		PageSize: DefaultPageSize,
		Strip:    []string{"^pinctrl-"},
		External: map[uint32]int{XenGICPhandle: xenGICInterruptCells},
	}
}

// compiled is Options after validation, ready for use.
type compiled struct {
	Options
	strip []*regexp.Regexp
	table *refs.Table
}

// Validate reports the first invalid option as a ConfigError.
func (o Options) Validate() error {
	_, err := o.compile()
	return err
}

func (o Options) compile() (*compiled, error) {
	c := &compiled{Options: o, table: refs.DefaultTable()}
	if o.Container != "" {
		if !strings.HasPrefix(o.Container, ast.PathSeparator) {
			return nil, types.Config("container %q is not an absolute path", o.Container)
		}
		if o.Container != ast.PathSeparator && strings.HasSuffix(o.Container, ast.PathSeparator) {
			return nil, types.Config("container %q has a trailing separator", o.Container)
		}
	}
	if o.XenReg && (o.PageSize == 0 || o.PageSize&(o.PageSize-1) != 0) {
		return nil, types.Config("page size 0x%x is not a power of two", o.PageSize)
	}
	for _, pat := range o.Strip {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, types.Config("strip pattern %q: %v", pat, err)
		}
		c.strip = append(c.strip, re)
	}
	for _, m := range append(append([]Marker(nil), o.RootMarkers...), o.ContainerMarkers...) {
		if m.Name == "" {
			return nil, types.Config("marker with an empty name")
		}
	}
	for ph, n := range o.External {
		if ph == 0 || ph == ast.InvalidPhandle {
			return nil, types.Config("external phandle 0x%x is reserved", ph)
		}
		if n < 0 {
			return nil, types.Config("external phandle 0x%x has negative cell count", ph)
		}
	}
	for name, cells := range o.References {
		if name == "" || name == "*" {
			return nil, types.Config("reference property with an empty name")
		}
		c.table.Add(name, cells)
	}
	if c.Logger == nil {
		c.Logger = logger.L
	}
	return c, nil
}

// stripped reports whether a source property is excluded from the output.
func (c *compiled) stripped(_ *ast.Node, name string) bool {
	for _, re := range c.strip {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// scanner returns a reference scanner over t configured by c.
func (c *compiled) scanner(t *ast.Tree) *refs.Scanner {
	return &refs.Scanner{Tree: t, Table: c.table, External: c.External, Skip: c.stripped}
}
