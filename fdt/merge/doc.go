// Package merge grafts a donor subtree into a destination tree additively.
//
// # Overview
//
// Merge finds or creates the target child under a destination parent and
// then copies donor content into it:
//   - an absent target is created and receives a deep copy of the donor
//   - a present target receives only the donor properties it lacks
//   - child nodes recurse by exact name, so same-named branches are unioned
//
// The destination always wins. Merge never deletes a node or property and
// never overwrites an existing value. Node name collisions are resolved by
// union, never by renaming.
//
// # Quick Start
//
//	res, err := merge.Merge(donor, out.Root, "passthrough", merge.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("created %d nodes, copied %d properties\n", res.Created, res.PropertiesCopied)
//
// # Provenance
//
// Result.Copied lists every property that came from the donor together with
// its source node, and Result.Nodes maps each donor node to the destination
// node it landed on. Callers that rewrite references use the former to
// touch donor-origin values only, and the latter to translate phandles.
package merge
