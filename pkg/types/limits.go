package types

// ============================================================================
// Device Tree Limits Constants
// ============================================================================
// Name lengths come from the Devicetree Specification. The structural limits
// are practical bounds used to reject hostile or runaway inputs; real board
// trees stay far below them.

const (
	// DTMaxNodeNameLen is the longest node name, unit address excluded.
	DTMaxNodeNameLen = 31

	// DTMaxPropertyNameLen is the longest property name.
	DTMaxPropertyNameLen = 31

	// DTMaxChildrenDefault is the practical maximum number of children per node.
	DTMaxChildrenDefault = 4096

	// DTMaxPropertiesDefault is the practical maximum number of properties per node.
	DTMaxPropertiesDefault = 1024

	// DTMaxValueSize1MB is the standard maximum size of one property value.
	DTMaxValueSize1MB = 1 << 20

	// DTMaxValueSize64KB is a conservative maximum for strict validation.
	DTMaxValueSize64KB = 64 << 10

	// DTMaxTreeDepthPractical is deeper than any real board tree.
	DTMaxTreeDepthPractical = 64

	// DTMaxTreeDepthShallow is a conservative depth for strict validation.
	DTMaxTreeDepthShallow = 16

	// DTMaxBlobSize16MB bounds the encoded size of a whole tree.
	DTMaxBlobSize16MB = 16 << 20

	// DTMaxBlobSize2MB is a conservative total size for strict validation.
	DTMaxBlobSize2MB = 2 << 20
)
