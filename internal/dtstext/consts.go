package dtstext

const (
	// ============================================================================
	// Directives
	// ============================================================================

	// VersionTag is the required first directive of a source file
	VersionTag = "/dts-v1/"

	// PluginTag marks an overlay source; accepted and ignored
	PluginTag = "/plugin/"

	// MemReserveTag introduces a reservation map entry
	MemReserveTag = "/memreserve/"

	// DeleteNodeTag removes a child node or a labelled node
	DeleteNodeTag = "/delete-node/"

	// DeletePropertyTag removes a property from the enclosing node
	DeletePropertyTag = "/delete-property/"

	// BitsTag selects a non-32-bit element size; not supported
	BitsTag = "/bits/"

	// IncludeTag is the dtc include directive; not supported
	IncludeTag = "/include/"

	// ============================================================================
	// Structural Tokens
	// ============================================================================

	RootPath      = "/"
	RefPrefix     = "&"
	PathRefOpen   = "&{"
	PathRefClose  = "}"
	LabelSuffix   = ":"
	Terminator    = ";"
	Assignment    = "="
	ValueSep      = ","
	NodeOpen      = "{"
	NodeClose     = "}"
	CellsOpen     = "<"
	CellsClose    = ">"
	BytesOpen     = "["
	BytesClose    = "]"
	Quote         = "\""
	CharQuote     = "'"
	LineComment   = "//"
	BlockComment  = "/*"
	BlockCommentE = "*/"

	// ============================================================================
	// Output Formatting
	// ============================================================================

	Indent        = "\t"
	CellFormat    = "0x%02x"
	ByteFormat    = "%02x"
	AddressFormat = "0x%x"
	PropertySep   = ", "
	LF            = "\n"
)
