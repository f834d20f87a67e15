package fdt

import (
	"github.com/joshuapare/fdtkit/fdt/check"
	"github.com/joshuapare/fdtkit/fdt/passthrough"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Re-export commonly used types so users only need to import pkg/fdt.

// Tree model.
type (
	Tree     = ast.Tree
	Node     = ast.Node
	Property = ast.Property
	Value    = ast.Value
	Limits   = ast.Limits
)

// Passthrough configuration and results.
type (
	Options = passthrough.Options
	Marker  = passthrough.Marker
	Profile = passthrough.Profile
	Result  = passthrough.Result
)

// CheckOptions configures ValidateTree.
type CheckOptions = check.Options

// Errors.
type (
	Error      = types.Error
	ErrKind    = types.ErrKind
	Stage      = types.Stage
	StageError = types.StageError
)

// Diagnostic types.
type (
	Severity         = types.Severity
	DiagCategory     = types.DiagCategory
	Diagnostic       = types.Diagnostic
	DiagnosticReport = types.DiagnosticReport
)

// Error sentinels for errors.Is.
var (
	ErrNodeNotFound      = types.ErrNodeNotFound
	ErrDanglingReference = types.ErrDanglingReference
	ErrMalformedProperty = types.ErrMalformedProperty
	ErrCodec             = types.ErrCodec
	ErrConfig            = types.ErrConfig
)

// Pipeline stages.
const (
	StageLoaded          = types.StageLoaded
	StageResolved        = types.StageResolved
	StageMerged          = types.StageMerged
	StageClosureComputed = types.StageClosureComputed
	StageFinalized       = types.StageFinalized
	StageRendered        = types.StageRendered
)

// DefaultOptions returns the Xen dom0less passthrough profile.
func DefaultOptions() Options {
	return passthrough.DefaultOptions()
}

// DefaultCheckOptions returns the default validation limits.
func DefaultCheckOptions() CheckOptions {
	return check.DefaultOptions()
}

// LoadProfile reads a YAML profile and applies it over DefaultOptions.
func LoadProfile(path string) (Options, error) {
	return passthrough.LoadProfile(path)
}

// Limit presets.
var (
	DefaultLimits = ast.DefaultLimits
	RelaxedLimits = ast.RelaxedLimits
	StrictLimits  = ast.StrictLimits
)

// MarshalProfile renders opts as a YAML profile.
func MarshalProfile(opts Options) ([]byte, error) {
	return passthrough.MarshalProfile(opts)
}

// ConfigError builds an ErrConfig error for invalid caller input.
func ConfigError(format string, args ...any) error {
	return types.Config(format, args...)
}
