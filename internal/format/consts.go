// Package format houses the low-level layout of flattened device tree
// blobs: header fields, structure-block tokens and alignment rules. Higher
// level packages (reader, writer) turn these into and out of ast trees.
package format

const (
	// Magic is the big-endian value of the first header word.
	// Layout:
	//   0x00  d0 0d fe ed
	Magic uint32 = 0xd00dfeed

	// Version is the format version written by the encoder.
	Version = 17

	// LastCompatibleVersion is the oldest version a v17 blob stays readable by.
	LastCompatibleVersion = 16

	// MinReadableVersion is the oldest version the decoder accepts.
	MinReadableVersion = 16
)

// Header field offsets. Every field is a big-endian uint32.
//
//	Offset  Field
//	0x00    magic
//	0x04    totalsize
//	0x08    off_dt_struct
//	0x0C    off_dt_strings
//	0x10    off_mem_rsvmap
//	0x14    version
//	0x18    last_comp_version
//	0x1C    boot_cpuid_phys
//	0x20    size_dt_strings
//	0x24    size_dt_struct   (version 17 and later)
const (
	HeaderMagicOffset       = 0x00
	HeaderTotalSizeOffset   = 0x04
	HeaderOffStructOffset   = 0x08
	HeaderOffStringsOffset  = 0x0C
	HeaderOffMemRsvOffset   = 0x10
	HeaderVersionOffset     = 0x14
	HeaderLastCompOffset    = 0x18
	HeaderBootCPUOffset     = 0x1C
	HeaderSizeStringsOffset = 0x20
	HeaderSizeStructOffset  = 0x24

	// HeaderSizeV16 is the header size of version 16 blobs.
	HeaderSizeV16 = 0x24
	// HeaderSize is the header size of version 17 blobs.
	HeaderSize = 0x28
)

// Token is a structure-block token.
type Token uint32

const (
	TokenBeginNode Token = 0x1
	TokenEndNode   Token = 0x2
	TokenProp      Token = 0x3
	TokenNop       Token = 0x4
	TokenEnd       Token = 0x9
)

// String returns the FDT_* name of the token.
func (t Token) String() string {
	switch t {
	case TokenBeginNode:
		return "FDT_BEGIN_NODE"
	case TokenEndNode:
		return "FDT_END_NODE"
	case TokenProp:
		return "FDT_PROP"
	case TokenNop:
		return "FDT_NOP"
	case TokenEnd:
		return "FDT_END"
	default:
		return "FDT_UNKNOWN"
	}
}

const (
	// TokenSize is the size of a structure-block token.
	TokenSize = 4

	// PropHeaderSize is the len + nameoff pair that follows FDT_PROP.
	PropHeaderSize = 8

	// ReserveEntrySize is one (address, size) pair in the reservation map.
	ReserveEntrySize = 16

	// StructAlignment is the alignment of every structure-block item.
	StructAlignment = 4

	// ReserveMapAlignment is the alignment of the reservation map.
	ReserveMapAlignment = 8

	// MaxDepth bounds node nesting while decoding.
	MaxDepth = 64
)
