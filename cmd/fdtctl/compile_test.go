package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCompileCommand(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	blob := filepath.Join(dir, "source.dtb")
	compileOutput = blob

	output, err := captureOutput(t, func() error {
		return runCompile([]string{testDataPath(t, "source.dts")})
	})
	if err != nil {
		t.Fatalf("runCompile() error = %v", err)
	}
	assertContains(t, output, []string{"Wrote " + blob})

	data, err := os.ReadFile(blob)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xd0, 0x0d, 0xfe, 0xed}) {
		t.Fatalf("output is not a blob: % x", data[:4])
	}

	// Back to text, then compile again: the blob must not change.
	resetFlags()
	text := filepath.Join(dir, "roundtrip.dts")
	compileOutput = text
	if _, err := captureOutput(t, func() error { return runCompile([]string{blob}) }); err != nil {
		t.Fatalf("decompile error = %v", err)
	}
	resetFlags()
	again := filepath.Join(dir, "again.dtb")
	compileOutput = again
	if _, err := captureOutput(t, func() error { return runCompile([]string{text}) }); err != nil {
		t.Fatalf("recompile error = %v", err)
	}
	data2, err := os.ReadFile(again)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, data2) {
		t.Error("blob changed across a text round trip")
	}
}

func TestCompileCommand_Errors(t *testing.T) {
	resetFlags()
	compileFormat = "xml"
	if _, err := captureOutput(t, func() error { return runCompile([]string{testDataPath(t, "source.dts")}) }); err == nil {
		t.Error("expected error for unknown format")
	}

	resetFlags()
	compileOutput = filepath.Join(t.TempDir(), "out.dtb")
	if _, err := captureOutput(t, func() error { return runCompile([]string{"nonexistent.dts"}) }); err == nil {
		t.Error("expected error for missing input")
	}
}
