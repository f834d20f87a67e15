package fdt

import (
	"github.com/joshuapare/fdtkit/fdt/passthrough"
	"github.com/joshuapare/fdtkit/internal/writer"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Passthrough extracts the node at nodePath from src into a copy of
// template. Neither input is modified.
func Passthrough(src, template *Tree, nodePath string, opts Options) (*Result, error) {
	return passthrough.Run(src, template, nodePath, opts)
}

// PassthroughBytes runs a passthrough and encodes the output in format f.
// Encoding failures are reported as StageRendered.
func PassthroughBytes(src, template *Tree, nodePath string, opts Options, f Format) (*Result, []byte, error) {
	res, err := passthrough.Run(src, template, nodePath, opts)
	if err != nil {
		return nil, nil, err
	}
	data, err := Encode(res.Tree, f)
	if err != nil {
		return nil, nil, &types.StageError{Stage: types.StageRendered, Err: err}
	}
	res.Stage = types.StageRendered
	return res, data, nil
}

// PassthroughFile loads srcPath and templatePath (empty for a bare root),
// runs the passthrough and writes the output atomically to outPath, in the
// format the extension selects. Nothing is written on failure. A nil opts
// uses DefaultOptions.
//
// Example:
//
//	err := fdt.PassthroughFile("board.dtb", "template.dts",
//	    "/soc/ethernet@4033c000", "passthrough.dts", nil)
func PassthroughFile(srcPath, templatePath, nodePath, outPath string, opts *Options) error {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	src, err := LoadFile(srcPath)
	if err != nil {
		return &types.StageError{Stage: types.StageLoaded, Err: err}
	}
	tmpl, err := LoadTemplate(templatePath)
	if err != nil {
		return &types.StageError{Stage: types.StageLoaded, Err: err}
	}
	_, data, err := PassthroughBytes(src, tmpl, nodePath, o, FormatAuto.Resolve(outPath))
	if err != nil {
		return err
	}
	w := &writer.FileWriter{Path: outPath}
	if err := w.WriteAll(data); err != nil {
		return &types.StageError{Stage: types.StageRendered, Err: types.Codec("write "+outPath, err)}
	}
	return nil
}
