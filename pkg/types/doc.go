// Package types holds the error taxonomy, pipeline stage identifiers,
// diagnostic reports and limit constants shared by every fdtkit package.
//
// Design goals:
//   - Typed errors with stable categories (not-found/dangling/malformed/codec/config).
//   - Enough context on every error (path, property, phandle) to act on it.
//   - errors.Is matching by kind through the exported sentinels.
//   - Checks that collect every issue into one report instead of failing fast.
//
// This package has no dependencies beyond the standard library.
package types
