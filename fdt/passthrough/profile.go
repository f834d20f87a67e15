package passthrough

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Profile is the YAML form of Options. Absent keys keep the defaults.
type Profile struct {
	Container        *string           `yaml:"container,omitempty"`
	PageSize         *uint64           `yaml:"page_size,omitempty"`
	XenReg           *bool             `yaml:"xen_reg,omitempty"`
	Strip            []string          `yaml:"strip,omitempty"`
	RootMarkers      []MarkerSpec      `yaml:"root_markers,omitempty"`
	ContainerMarkers []MarkerSpec      `yaml:"container_markers,omitempty"`
	External         []ExternalPhandle `yaml:"external_phandles,omitempty"`
	References       []ReferenceSpec   `yaml:"references,omitempty"`
}

// MarkerSpec describes one marker. At most one of String, Strings and
// Cells may be set; none of them makes an empty flag property.
type MarkerSpec struct {
	Name    string   `yaml:"name"`
	String  *string  `yaml:"string,omitempty"`
	Strings []string `yaml:"strings,omitempty"`
	Cells   []uint32 `yaml:"cells,omitempty"`
}

// ExternalPhandle is one phandle supplied by the passthrough consumer.
type ExternalPhandle struct {
	Phandle uint32 `yaml:"phandle"`
	Cells   int    `yaml:"cells"`
}

// ReferenceSpec adds a reference-bearing property to the scanner table.
type ReferenceSpec struct {
	Name  string `yaml:"name"`
	Cells string `yaml:"cells,omitempty"`
}

// LoadProfile reads a YAML profile from path and applies it over
// DefaultOptions.
func LoadProfile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, types.Config("read profile %s: %v", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes YAML profile text and applies it over DefaultOptions.
// Unknown keys are rejected.
func ParseProfile(data []byte) (Options, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, types.Config("parse profile: %v", err)
	}
	opts, err := p.Apply(DefaultOptions())
	if err != nil {
		return Options{}, err
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Apply overlays the keys present in p onto base.
func (p Profile) Apply(base Options) (Options, error) {
	out := base
	if p.Container != nil {
		out.Container = *p.Container
	}
	if p.PageSize != nil {
		out.PageSize = *p.PageSize
	}
	if p.XenReg != nil {
		out.XenReg = *p.XenReg
	}
	if p.Strip != nil {
		out.Strip = append([]string(nil), p.Strip...)
	}
	if p.RootMarkers != nil {
		m, err := markers(p.RootMarkers)
		if err != nil {
			return Options{}, err
		}
		out.RootMarkers = m
	}
	if p.ContainerMarkers != nil {
		m, err := markers(p.ContainerMarkers)
		if err != nil {
			return Options{}, err
		}
		out.ContainerMarkers = m
	}
	if p.External != nil {
		out.External = make(map[uint32]int, len(p.External))
		for _, e := range p.External {
			out.External[e.Phandle] = e.Cells
		}
	}
	if p.References != nil {
		out.References = make(map[string]string, len(base.References)+len(p.References))
		for k, v := range base.References {
			out.References[k] = v
		}
		for _, r := range p.References {
			out.References[r.Name] = r.Cells
		}
	}
	return out, nil
}

func markers(specs []MarkerSpec) ([]Marker, error) {
	out := make([]Marker, 0, len(specs))
	for _, s := range specs {
		set := 0
		if s.String != nil {
			set++
		}
		if s.Strings != nil {
			set++
		}
		if s.Cells != nil {
			set++
		}
		if set > 1 {
			return nil, types.Config("marker %q sets more than one of string, strings and cells", s.Name)
		}
		switch {
		case s.String != nil:
			out = append(out, StringMarker(s.Name, *s.String))
		case s.Strings != nil:
			out = append(out, Marker{Name: s.Name, Value: ast.Strings(s.Strings...)})
		case s.Cells != nil:
			out = append(out, CellsMarker(s.Name, s.Cells...))
		default:
			out = append(out, FlagMarker(s.Name))
		}
	}
	return out, nil
}

// ProfileOf converts opts back into its YAML form.
func ProfileOf(opts Options) (Profile, error) {
	p := Profile{
		Container: &opts.Container,
		PageSize:  &opts.PageSize,
		XenReg:    &opts.XenReg,
		Strip:     opts.Strip,
	}
	var err error
	if p.RootMarkers, err = markerSpecs(opts.RootMarkers); err != nil {
		return Profile{}, err
	}
	if p.ContainerMarkers, err = markerSpecs(opts.ContainerMarkers); err != nil {
		return Profile{}, err
	}
	phandles := make([]uint32, 0, len(opts.External))
	for ph := range opts.External {
		phandles = append(phandles, ph)
	}
	sort.Slice(phandles, func(i, j int) bool { return phandles[i] < phandles[j] })
	for _, ph := range phandles {
		p.External = append(p.External, ExternalPhandle{Phandle: ph, Cells: opts.External[ph]})
	}
	names := make([]string, 0, len(opts.References))
	for n := range opts.References {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		p.References = append(p.References, ReferenceSpec{Name: n, Cells: opts.References[n]})
	}
	return p, nil
}

func markerSpecs(ms []Marker) ([]MarkerSpec, error) {
	out := make([]MarkerSpec, 0, len(ms))
	for _, m := range ms {
		entry := MarkerSpec{Name: m.Name}
		switch m.Value.Kind {
		case ast.KindEmpty:
		case ast.KindString:
			s, _ := m.Value.AsString()
			entry.String = &s
		case ast.KindStrings:
			entry.Strings, _ = m.Value.AsStrings()
		case ast.KindCells:
			entry.Cells, _ = m.Value.AsCells()
		default:
			return nil, fmt.Errorf("marker %q: %s values have no profile form", m.Name, m.Value.Kind)
		}
		out = append(out, entry)
	}
	return out, nil
}

// MarshalProfile renders opts as profile YAML.
func MarshalProfile(opts Options) ([]byte, error) {
	p, err := ProfileOf(opts)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(&p)
}
