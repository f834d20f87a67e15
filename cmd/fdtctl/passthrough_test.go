package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestPassthroughCommand(t *testing.T) {
	tests := []struct {
		name          string
		node          string
		output        string
		container     *string
		format        string
		diff          bool
		wantErr       string
		wantStdout    []string
		wantNotStdout []string
		wantFile      []string
		wantNotFile   []string
	}{
		{
			name:       "default container",
			node:       "/soc/ethernet@4033c000",
			output:     "out.dts",
			wantStdout: []string{"Wrote", "+ /sample_clk"},
			wantFile: []string{
				"passthrough {",
				"ethernet@4033c000 {",
				`xen,path = "/soc/ethernet@4033c000";`,
				"xen,force-assign-without-iommu;",
				"sample_clk {",
			},
			wantNotFile: []string{"pinctrl-0", "fec1grp", "unused_clk"},
		},
		{
			name:       "label path",
			node:       "&fec1",
			output:     "out.dts",
			wantStdout: []string{"&fec1 as /passthrough/ethernet@4033c000"},
			wantFile:   []string{`xen,path = "/soc/ethernet@4033c000";`},
		},
		{
			name:      "mirror source paths",
			node:      "/soc/ethernet@4033c000",
			output:    "out.dts",
			container: new(string),
			wantFile:  []string{"soc {", "ethernet@4033c000 {", "sample_clk {"},
		},
		{
			name:          "diff",
			node:          "/soc/ethernet@4033c000",
			output:        "out.dts",
			diff:          true,
			wantStdout:    []string{"+ \t\tethernet@4033c000 {", "  \tpassthrough {"},
			wantNotStdout: []string{"\n- "},
		},
		{
			name:   "blob output by extension",
			node:   "/soc/ethernet@4033c000",
			output: "out.dtb",
		},
		{
			name:   "blob output by flag",
			node:   "/soc/ethernet@4033c000",
			output: "out.bin",
			format: "dtb",
		},
		{
			name:    "missing node",
			node:    "/soc/ethernet@9999",
			output:  "out.dts",
			wantErr: "resolve: ",
		},
		{
			name:    "bad output format",
			node:    "/soc/ethernet@4033c000",
			output:  "out.dts",
			format:  "yaml",
			wantErr: "load: ",
		},
		{
			name:      "relative container",
			node:      "/soc/ethernet@4033c000",
			output:    "out.dts",
			container: func() *string { s := "guest"; return &s }(),
			wantErr:   "load: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			dir := t.TempDir()
			ptInput = testDataPath(t, "source.dts")
			ptTemplate = testDataPath(t, "template.dts")
			ptNode = tt.node
			ptOutput = filepath.Join(dir, tt.output)
			ptFormat = tt.format
			ptDiff = tt.diff
			if tt.container != nil {
				ptContainer, ptContainerSet = *tt.container, true
			}

			output, err := captureOutput(t, runPassthrough)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("runPassthrough() succeeded, want error %q", tt.wantErr)
				}
				if got := describeError(err); !strings.HasPrefix(got, tt.wantErr) {
					t.Errorf("describeError() = %q, want prefix %q", got, tt.wantErr)
				}
				if _, statErr := os.Stat(ptOutput); !os.IsNotExist(statErr) {
					t.Errorf("output written despite failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("runPassthrough() error = %v", err)
			}

			assertContains(t, output, tt.wantStdout)
			assertNotContains(t, output, tt.wantNotStdout)

			data, err := os.ReadFile(ptOutput)
			if err != nil {
				t.Fatalf("failed to read output: %v", err)
			}
			isBlob := len(data) >= 4 && data[0] == 0xd0 && data[1] == 0x0d && data[2] == 0xfe && data[3] == 0xed
			wantBlob := tt.format == "dtb" || strings.HasSuffix(tt.output, ".dtb")
			if isBlob != wantBlob {
				t.Errorf("blob output = %v, want %v", isBlob, wantBlob)
			}
			if !isBlob {
				assertContains(t, string(data), tt.wantFile)
				assertNotContains(t, string(data), tt.wantNotFile)
			}
		})
	}
}

func TestPassthroughCommand_JSON(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	ptInput = testDataPath(t, "source.dts")
	ptTemplate = testDataPath(t, "template.dts")
	ptNode = "/soc/ethernet@4033c000"
	ptOutput = filepath.Join(dir, "out.dts")
	jsonOut = true

	output, err := captureOutput(t, runPassthrough)
	if err != nil {
		t.Fatalf("runPassthrough() error = %v", err)
	}
	assertJSON(t, output)

	var got passthroughSummary
	if err := json.Unmarshal([]byte(output), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Node != "/passthrough/ethernet@4033c000" {
		t.Errorf("node = %q", got.Node)
	}
	if got.Format != "dts" {
		t.Errorf("format = %q, want dts", got.Format)
	}
	if len(got.Pulled) != 1 || got.Pulled[0] != "/sample_clk" {
		t.Errorf("pulled = %v, want [/sample_clk]", got.Pulled)
	}
}

func TestPassthroughCommand_Profile(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.yaml")
	text := "container: /guest/devices\nxen_reg: false\nroot_markers:\n  - name: xen,path\n    string: \"{path}\"\n"
	if err := os.WriteFile(profile, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	ptInput = testDataPath(t, "source.dts")
	ptTemplate = testDataPath(t, "template.dts")
	ptNode = "/soc/ethernet@4033c000"
	ptOutput = filepath.Join(dir, "out.dts")
	ptConfig = profile

	if _, err := captureOutput(t, runPassthrough); err != nil {
		t.Fatalf("runPassthrough() error = %v", err)
	}
	data, err := os.ReadFile(ptOutput)
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, string(data), []string{"guest {", "devices {", "xen,path"})
	assertNotContains(t, string(data), []string{"xen,reg", "xen,force-assign-without-iommu"})
}

func TestPassthroughCommand_BadProfile(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(profile, []byte("bogus: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ptInput = testDataPath(t, "source.dts")
	ptTemplate = testDataPath(t, "template.dts")
	ptNode = "/soc/ethernet@4033c000"
	ptOutput = filepath.Join(dir, "out.dts")
	ptConfig = profile

	_, err := captureOutput(t, runPassthrough)
	if err == nil {
		t.Fatal("expected error for unknown profile key")
	}
	if got := describeError(err); !strings.HasPrefix(got, "load: ") {
		t.Errorf("describeError() = %q", got)
	}
}

func TestPassthroughCommand_NoTemplate(t *testing.T) {
	resetFlags()
	ptInput = testDataPath(t, "source.dts")
	ptNode = "/soc/ethernet@4033c000"
	ptOutput = filepath.Join(t.TempDir(), "out.dts")

	_, err := captureOutput(t, runPassthrough)
	if err == nil {
		t.Fatal("expected error without a template")
	}
	if got := describeError(err); !strings.Contains(got, "no template device tree given") {
		t.Errorf("describeError() = %q", got)
	}
	if _, statErr := os.Stat(ptOutput); !os.IsNotExist(statErr) {
		t.Errorf("output written despite failure")
	}
}

func TestPassthroughCommand_TemplateFlagRequired(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() != "passthrough" {
			continue
		}
		for _, name := range []string{"input", "template", "node"} {
			f := c.Flags().Lookup(name)
			if f == nil {
				t.Fatalf("passthrough has no --%s flag", name)
			}
			if _, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
				t.Errorf("--%s is not marked required", name)
			}
		}
		return
	}
	t.Fatal("passthrough command not registered")
}

func TestRenumbered(t *testing.T) {
	got := renumbered(map[uint32]uint32{1: 1, 5: 7, 2: 9})
	if len(got) != 2 || got[0] != (phandleChange{2, 9}) || got[1] != (phandleChange{5, 7}) {
		t.Errorf("renumbered() = %v", got)
	}
}
