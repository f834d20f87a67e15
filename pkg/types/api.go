package types

import (
	"errors"
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindNodeNotFound      ErrKind = iota // requested path has no matching node
	ErrKindDanglingReference                // phandle value with no owning node
	ErrKindMalformedProperty                // reference-bearing value with the wrong shape
	ErrKindCodec                            // blob or text decode/encode failure
	ErrKindConfig                           // invalid profile or option
)

// String returns the taxonomy name of the kind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindNodeNotFound:
		return "NodeNotFound"
	case ErrKindDanglingReference:
		return "DanglingReference"
	case ErrKindMalformedProperty:
		return "MalformedProperty"
	case ErrKindCodec:
		return "CodecError"
	case ErrKindConfig:
		return "ConfigError"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with enough context to act on without reading code.
// Only the fields relevant to Kind are populated.
type Error struct {
	Kind     ErrKind
	Msg      string
	Path     string // owning node path
	Property string // offending property name
	Segment  string // first unmatched path segment (NodeNotFound)
	Position int    // 0-based index of Segment within the path
	Phandle  uint32 // offending phandle value (DanglingReference)
	Err      error  // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Path != "" {
		fmt.Fprintf(&b, " (node %s", e.Path)
		if e.Property != "" {
			fmt.Fprintf(&b, ", property %s", e.Property)
		}
		b.WriteString(")")
	} else if e.Property != "" {
		fmt.Fprintf(&b, " (property %s)", e.Property)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so callers can write
// errors.Is(err, types.ErrNodeNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is matching by kind.
var (
	// ErrNodeNotFound matches every NodeNotFound error.
	ErrNodeNotFound = &Error{Kind: ErrKindNodeNotFound, Msg: "node not found"}
	// ErrDanglingReference matches every DanglingReference error.
	ErrDanglingReference = &Error{Kind: ErrKindDanglingReference, Msg: "dangling phandle reference"}
	// ErrMalformedProperty matches every MalformedProperty error.
	ErrMalformedProperty = &Error{Kind: ErrKindMalformedProperty, Msg: "malformed property"}
	// ErrCodec matches every CodecError.
	ErrCodec = &Error{Kind: ErrKindCodec, Msg: "codec error"}
	// ErrConfig matches every ConfigError.
	ErrConfig = &Error{Kind: ErrKindConfig, Msg: "invalid configuration"}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// NodeNotFound builds a NodeNotFound error for the segment at position pos of path.
func NodeNotFound(path, segment string, pos int) *Error {
	return &Error{
		Kind:     ErrKindNodeNotFound,
		Msg:      fmt.Sprintf("node not found: no segment %q at position %d of %q", segment, pos, path),
		Segment:  segment,
		Position: pos,
	}
}

// DanglingReference builds a DanglingReference error.
func DanglingReference(nodePath, prop string, phandle uint32) *Error {
	return &Error{
		Kind:     ErrKindDanglingReference,
		Msg:      fmt.Sprintf("dangling reference to phandle 0x%x", phandle),
		Path:     nodePath,
		Property: prop,
		Phandle:  phandle,
	}
}

// MalformedProperty builds a MalformedProperty error.
func MalformedProperty(nodePath, prop, format string, args ...any) *Error {
	return &Error{
		Kind:     ErrKindMalformedProperty,
		Msg:      "malformed property: " + fmt.Sprintf(format, args...),
		Path:     nodePath,
		Property: prop,
	}
}

// Codec wraps a boundary decode/encode failure.
func Codec(msg string, err error) *Error {
	return &Error{Kind: ErrKindCodec, Msg: msg, Err: err}
}

// Config builds a ConfigError for an invalid option or profile entry.
func Config(format string, args ...any) *Error {
	return &Error{Kind: ErrKindConfig, Msg: "invalid configuration: " + fmt.Sprintf(format, args...)}
}

// -----------------------------------------------------------------------------
// Pipeline stages
// -----------------------------------------------------------------------------

// Stage names a step of the passthrough pipeline. Stages run strictly in
// declaration order.
type Stage int

const (
	StageLoaded Stage = iota
	StageResolved
	StageMerged
	StageClosureComputed
	StageFinalized
	StageRendered
)

// String implements the Stringer interface for Stage.
func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "load"
	case StageResolved:
		return "resolve"
	case StageMerged:
		return "merge"
	case StageClosureComputed:
		return "closure"
	case StageFinalized:
		return "finalize"
	case StageRendered:
		return "render"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage.String() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }
