package refs

import (
	"sort"
	"strings"
)

// Table maps reference-bearing property names to the #<x>-cells property
// that sizes each specifier. An empty cells name marks a plain phandle list.
type Table struct {
	exact    map[string]string
	suffixes []suffixRule
	exclude  map[string]bool
}

type suffixRule struct {
	suffix string
	cells  string
}

const (
	clockCells     = "#clock-cells"
	resetCells     = "#reset-cells"
	powerCells     = "#power-domain-cells"
	dmaCells       = "#dma-cells"
	iommuCells     = "#iommu-cells"
	phyCells       = "#phy-cells"
	mboxCells      = "#mbox-cells"
	pwmCells       = "#pwm-cells"
	hwlockCells    = "#hwlock-cells"
	ioChannelCells = "#io-channel-cells"
	icCells        = "#interconnect-cells"
	thermalCells   = "#thermal-sensor-cells"
	soundDaiCells  = "#sound-dai-cells"
	interruptCells = "#interrupt-cells"
	gpioCells      = "#gpio-cells"

	// pinctrlPrefix names the numbered pinctrl-<N> state lists.
	pinctrlPrefix = "pinctrl-"
)

// DefaultTable returns the standard set of reference properties.
func DefaultTable() *Table {
	t := &Table{
		exact: map[string]string{
			"interrupt-parent":       "",
			"memory-region":          "",
			"phy-handle":             "",
			"nvmem-cells":            "",
			"next-level-cache":       "",
			"operating-points-v2":    "",
			"cpu":                    "",
			"clocks":                 clockCells,
			"assigned-clocks":        clockCells,
			"assigned-clock-parents": clockCells,
			"resets":                 resetCells,
			"power-domains":          powerCells,
			"dmas":                   dmaCells,
			"iommus":                 iommuCells,
			"phys":                   phyCells,
			"mboxes":                 mboxCells,
			"pwms":                   pwmCells,
			"hwlocks":                hwlockCells,
			"io-channels":            ioChannelCells,
			"interconnects":          icCells,
			"thermal-sensors":        thermalCells,
			"sound-dai":              soundDaiCells,
			"interrupts-extended":    interruptCells,
			"gpios":                  gpioCells,
			"gpio":                   gpioCells,
		},
		suffixes: []suffixRule{
			{suffix: "-gpios", cells: gpioCells},
			{suffix: "-gpio", cells: gpioCells},
		},
		exclude: map[string]bool{
			"nr-gpios": true,
		},
	}
	return t
}

// Add registers a reference property. A name starting with "*" matches
// every property ending in the rest of the name.
func (t *Table) Add(name, cells string) {
	if suffix, ok := strings.CutPrefix(name, "*"); ok {
		t.suffixes = append(t.suffixes, suffixRule{suffix: suffix, cells: cells})
		return
	}
	delete(t.exclude, name)
	t.exact[name] = cells
}

// Lookup reports whether name carries references and which #<x>-cells
// property sizes its specifiers.
func (t *Table) Lookup(name string) (cells string, ok bool) {
	if strings.HasPrefix(name, "#") || t.exclude[name] {
		return "", false
	}
	if cells, ok := t.exact[name]; ok {
		return cells, true
	}
	if isPinctrlState(name) {
		return "", true
	}
	for _, r := range t.suffixes {
		if strings.HasSuffix(name, r.suffix) && len(name) > len(r.suffix) {
			return r.cells, true
		}
	}
	return "", false
}

// Names lists the exact property names in the table, sorted.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.exact))
	for n := range t.exact {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func isPinctrlState(name string) bool {
	rest, ok := strings.CutPrefix(name, pinctrlPrefix)
	if !ok || rest == "" {
		return false
	}
	for i := range len(rest) {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return true
}
