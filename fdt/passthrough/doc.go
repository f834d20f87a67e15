// Package passthrough builds partial device trees for device passthrough.
//
// Run takes a complete source tree, the path of the device to hand to a
// guest, and a template tree. It copies the device subtree into a deep copy
// of the template, pulls in every node the device references (clocks,
// reserved memory, ...) and finalizes the result so it stands alone:
//
//	src, _ := fdt.LoadBlob("host.dtb")
//	tmpl, _ := fdt.LoadTemplate("partial.dts")
//	res, err := passthrough.Run(src, tmpl, "/soc/ethernet@4033c000", passthrough.DefaultOptions())
//	if err != nil {
//	    return err // *types.StageError
//	}
//
// The pipeline runs load, resolve, merge, closure and finalize in order and
// stops at the first failure. Template properties always win over source
// properties. Markers, xen,reg generation, the container path and the
// property strip list are all Options; DefaultOptions selects the Xen
// dom0less conventions and LoadProfile reads overrides from YAML.
package passthrough
