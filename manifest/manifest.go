// Package manifest reads handler declarations from YAML or TOML files.
//
//	controllers:
//	  - name: Persons
//	    path: /persons
//	    handlers:
//	      - name: Show
//	        path: /{id}
//	        method: GET
//	        bind: [id]
//	      - name: Update
//	        path: /{id}
//	        method: POST
//	        params: ["cmd=update"]
//	        priority: 1
//
// Handler functions cannot be declared in a file; they are attached by
// "Controller.Handler" name with [Manifest.Declarations].
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/CommerceBoard/geemvc/handler"
)

// Format is the encoding of a manifest.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// ErrUnknownFormat is returned for files of an unsupported type.
var ErrUnknownFormat = errors.New("manifest: unknown format")

// FormatOf returns the format of path by its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Manifest is a set of controller declarations.
type Manifest struct {
	Controllers []Controller `yaml:"controllers" toml:"controllers"`
}

// Controller declares a controller.
type Controller struct {
	Name     string    `yaml:"name" toml:"name"`
	Path     string    `yaml:"path" toml:"path"`
	Handlers []Handler `yaml:"handlers" toml:"handlers"`
}

// Handler declares one handler method.
type Handler struct {
	Name     string   `yaml:"name" toml:"name"`
	Path     string   `yaml:"path" toml:"path"`
	Method   string   `yaml:"method" toml:"method"`
	Params   []string `yaml:"params" toml:"params"`
	Priority int      `yaml:"priority" toml:"priority"`
	// Bind names the non-injected parameters of the handler function.
	Bind []string `yaml:"bind" toml:"bind"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, path)
	}
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are errors.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest

	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: yaml: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("manifest: toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("manifest: toml: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that controllers and handlers are named and that no name
// repeats.
func (m *Manifest) Validate() error {
	controllers := make(map[string]struct{}, len(m.Controllers))
	for i, c := range m.Controllers {
		if c.Name == "" {
			return fmt.Errorf("manifest: controller #%d has no name", i+1)
		}
		if _, dup := controllers[c.Name]; dup {
			return fmt.Errorf("manifest: duplicate controller %q", c.Name)
		}
		controllers[c.Name] = struct{}{}

		handlers := make(map[string]struct{}, len(c.Handlers))
		for j, h := range c.Handlers {
			if h.Name == "" {
				return fmt.Errorf("manifest: handler #%d of %s has no name", j+1, c.Name)
			}
			if _, dup := handlers[h.Name]; dup {
				return fmt.Errorf("manifest: duplicate handler %s.%s", c.Name, h.Name)
			}
			handlers[h.Name] = struct{}{}
		}
	}
	return nil
}

// Declarations returns the handler declarations of the manifest. funcs
// attaches handler functions by "Controller.Handler" name; handlers without
// a function can be resolved but not invoked. A function naming no handler
// is an error.
func (m *Manifest) Declarations(funcs map[string]any) ([]handler.Controller, error) {
	used := make(map[string]bool, len(funcs))

	out := make([]handler.Controller, 0, len(m.Controllers))
	for _, c := range m.Controllers {
		ctrl := handler.Controller{
			Name:    c.Name,
			Path:    c.Path,
			Methods: make([]handler.Method, 0, len(c.Handlers)),
		}
		for _, h := range c.Handlers {
			name := c.Name + "." + h.Name
			fn, ok := funcs[name]
			if ok {
				used[name] = true
			}
			ctrl.Methods = append(ctrl.Methods, handler.Method{
				Name:     h.Name,
				Path:     h.Path,
				Method:   h.Method,
				Params:   h.Params,
				Priority: h.Priority,
				Func:     fn,
				Bind:     h.Bind,
			})
		}
		out = append(out, ctrl)
	}

	for _, name := range slices.Sorted(maps.Keys(funcs)) {
		if !used[name] {
			return nil, fmt.Errorf("manifest: function for undeclared handler %s", name)
		}
	}
	return out, nil
}
