package format

import (
	"fmt"

	"github.com/joshuapare/fdtkit/internal/buf"
)

// Header captures the fixed blob header.
type Header struct {
	TotalSize   uint32
	OffStruct   uint32
	OffStrings  uint32
	OffMemRsv   uint32
	Version     uint32
	LastComp    uint32
	BootCPU     uint32
	SizeStrings uint32
	SizeStruct  uint32 // derived from the layout for version 16 blobs
}

// DecodeHeader decodes and validates the header at the start of b. Every
// block it describes is checked to lie within both totalsize and len(b).
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSizeV16 {
		return Header{}, fmt.Errorf("header: %w (have %d, need %d)", ErrTruncated, len(b), HeaderSizeV16)
	}
	if buf.U32BE(b[HeaderMagicOffset:]) != Magic {
		return Header{}, fmt.Errorf("header: %w (got %#x)", ErrBadMagic, buf.U32BE(b[HeaderMagicOffset:]))
	}

	h := Header{
		TotalSize:   buf.U32BE(b[HeaderTotalSizeOffset:]),
		OffStruct:   buf.U32BE(b[HeaderOffStructOffset:]),
		OffStrings:  buf.U32BE(b[HeaderOffStringsOffset:]),
		OffMemRsv:   buf.U32BE(b[HeaderOffMemRsvOffset:]),
		Version:     buf.U32BE(b[HeaderVersionOffset:]),
		LastComp:    buf.U32BE(b[HeaderLastCompOffset:]),
		BootCPU:     buf.U32BE(b[HeaderBootCPUOffset:]),
		SizeStrings: buf.U32BE(b[HeaderSizeStringsOffset:]),
	}
	if h.Version < MinReadableVersion || h.LastComp > Version {
		return Header{}, fmt.Errorf("header: %w (version %d, last compatible %d)", ErrVersion, h.Version, h.LastComp)
	}
	if int64(h.TotalSize) > int64(len(b)) {
		return Header{}, fmt.Errorf("header: %w (totalsize %d > buffer %d)", ErrTruncated, h.TotalSize, len(b))
	}

	if h.Version >= Version {
		if len(b) < HeaderSize {
			return Header{}, fmt.Errorf("header: %w (have %d, need %d)", ErrTruncated, len(b), HeaderSize)
		}
		h.SizeStruct = buf.U32BE(b[HeaderSizeStructOffset:])
	} else {
		if h.OffStruct > h.TotalSize {
			return Header{}, fmt.Errorf("header: %w (struct offset %d)", ErrLayout, h.OffStruct)
		}
		h.SizeStruct = h.TotalSize - h.OffStruct
	}

	total := int(h.TotalSize)
	if _, err := buf.CheckRange(total, int(h.OffStruct), int(h.SizeStruct)); err != nil {
		return Header{}, fmt.Errorf("header: struct block: %w: %w", ErrLayout, err)
	}
	if _, err := buf.CheckRange(total, int(h.OffStrings), int(h.SizeStrings)); err != nil {
		return Header{}, fmt.Errorf("header: strings block: %w: %w", ErrLayout, err)
	}
	if int(h.OffMemRsv)%ReserveMapAlignment != 0 || int(h.OffMemRsv) >= total {
		return Header{}, fmt.Errorf("header: %w (reservation map offset %d)", ErrLayout, h.OffMemRsv)
	}
	if int(h.OffStruct)%StructAlignment != 0 {
		return Header{}, fmt.Errorf("header: %w (struct offset %d not aligned)", ErrLayout, h.OffStruct)
	}
	return h, nil
}

// AppendHeader appends the version 17 encoding of h to b.
func AppendHeader(b []byte, h Header) []byte {
	b = buf.AppendU32BE(b, Magic)
	b = buf.AppendU32BE(b, h.TotalSize)
	b = buf.AppendU32BE(b, h.OffStruct)
	b = buf.AppendU32BE(b, h.OffStrings)
	b = buf.AppendU32BE(b, h.OffMemRsv)
	b = buf.AppendU32BE(b, h.Version)
	b = buf.AppendU32BE(b, h.LastComp)
	b = buf.AppendU32BE(b, h.BootCPU)
	b = buf.AppendU32BE(b, h.SizeStrings)
	b = buf.AppendU32BE(b, h.SizeStruct)
	return b
}
