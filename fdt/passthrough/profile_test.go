package passthrough

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

func TestParseProfile(t *testing.T) {
	opts, err := ParseProfile([]byte(`
container: /guest/devices
page_size: 0x10000
strip: ["^pinctrl-", "^assigned-"]
root_markers:
  - name: xen,path
    string: "{path}"
  - name: xen,custom
    cells: [1, 2]
external_phandles:
  - phandle: 65000
    cells: 3
  - phandle: 65001
    cells: 0
references:
  - name: "*-supply"
  - name: sram
`))
	require.NoError(t, err)

	require.Equal(t, "/guest/devices", opts.Container)
	require.Equal(t, uint64(0x10000), opts.PageSize)
	require.True(t, opts.XenReg, "absent keys keep defaults")
	require.Equal(t, []string{"^pinctrl-", "^assigned-"}, opts.Strip)
	require.Len(t, opts.RootMarkers, 2)
	require.Equal(t, ast.KindCells, opts.RootMarkers[1].Value.Kind)
	require.Equal(t, DefaultOptions().ContainerMarkers, opts.ContainerMarkers)
	require.Equal(t, map[uint32]int{65000: 3, 65001: 0}, opts.External)
	require.Equal(t, map[string]string{"*-supply": "", "sram": ""}, opts.References)
}

func TestParseProfile_Empty(t *testing.T) {
	opts, err := ParseProfile(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultOptions().Container, opts.Container)
	require.Equal(t, DefaultOptions().External, opts.External)
}

func TestParseProfile_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "contaner: /x\n"},
		{"bad page size", "page_size: 3000\n"},
		{"relative container", "container: passthrough\n"},
		{"bad strip pattern", "strip: ['(']\n"},
		{"conflicting marker", "root_markers:\n  - name: a\n    string: x\n    cells: [1]\n"},
		{"reserved external phandle", "external_phandles:\n  - phandle: 0\n    cells: 1\n"},
		{"not yaml", "container: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tt.yaml))
			require.ErrorIs(t, err, types.ErrConfig)
		})
	}
}

func TestMarshalProfile_RoundTrip(t *testing.T) {
	data, err := MarshalProfile(DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, string(data), "container: /passthrough")

	opts, err := ParseProfile(data)
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultOptions(), opts, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("profile round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("container: \"\"\nxen_reg: false\n"), 0o600))

	opts, err := LoadProfile(path)
	require.NoError(t, err)
	require.Empty(t, opts.Container)
	require.False(t, opts.XenReg)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, types.ErrConfig)
}
