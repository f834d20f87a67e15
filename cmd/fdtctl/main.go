// Command fdtctl extracts device tree nodes for Xen passthrough and inspects
// device tree blobs and sources.
package main

func main() {
	execute()
}
