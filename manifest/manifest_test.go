package manifest

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CommerceBoard/geemvc/handler"
)

const personsYAML = `
controllers:
  - name: Persons
    path: /persons
    handlers:
      - name: List
        method: GET
      - name: Show
        path: /{id}
        method: GET
        bind: [id]
      - name: Update
        path: /{id}
        method: POST
        params: ["cmd=update"]
        priority: 1
`

const personsTOML = `
[[controllers]]
name = "Persons"
path = "/persons"

  [[controllers.handlers]]
  name = "List"
  method = "GET"

  [[controllers.handlers]]
  name = "Show"
  path = "/{id}"
  method = "GET"
  bind = ["id"]

  [[controllers.handlers]]
  name = "Update"
  path = "/{id}"
  method = "POST"
  params = ["cmd=update"]
  priority = 1
`

var personsManifest = &Manifest{
	Controllers: []Controller{{
		Name: "Persons",
		Path: "/persons",
		Handlers: []Handler{
			{Name: "List", Method: "GET"},
			{Name: "Show", Path: "/{id}", Method: "GET", Bind: []string{"id"}},
			{Name: "Update", Path: "/{id}", Method: "POST", Params: []string{"cmd=update"}, Priority: 1},
		},
	}},
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{file: "routes.yaml", content: personsYAML},
		{file: "routes.yml", content: personsYAML},
		{file: "routes.toml", content: personsTOML},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			m, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			if diff := cmp.Diff(personsManifest, m); diff != "" {
				t.Errorf("manifest mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		msg     string
	}{
		{name: "unknown extension", file: "routes.json", content: "{}", msg: "manifest: unknown format"},
		{name: "yaml unknown key", file: "r.yaml", content: "controllers:\n  - name: A\n    verb: GET\n", msg: "manifest: yaml"},
		{name: "toml unknown key", file: "r.toml", content: "[[controllers]]\nname = \"A\"\nverb = \"GET\"\n", msg: "unknown key \"controllers.verb\""},
		{name: "toml syntax", file: "r.toml", content: "[[controllers]\n", msg: "manifest: toml"},
		{name: "unnamed controller", file: "r.yaml", content: "controllers:\n  - path: /a\n", msg: "controller #1 has no name"},
		{name: "unnamed handler", file: "r.yaml", content: "controllers:\n  - name: A\n    handlers:\n      - path: /x\n", msg: "handler #1 of A has no name"},
		{name: "duplicate controller", file: "r.yaml", content: "controllers:\n  - name: A\n  - name: A\n", msg: "duplicate controller \"A\""},
		{name: "duplicate handler", file: "r.yaml", content: "controllers:\n  - name: A\n    handlers:\n      - name: X\n      - name: X\n", msg: "duplicate handler A.X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.ErrorContains(t, err, tt.msg)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "routes.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseEmpty(t *testing.T) {
	m, err := Parse(nil, YAML)
	require.NoError(t, err)
	assert.Empty(t, m.Controllers)

	_, err = Parse(nil, Format("ini"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDeclarations(t *testing.T) {
	show := func(id int) int { return id }

	ctrls, err := personsManifest.Declarations(map[string]any{"Persons.Show": show})
	require.NoError(t, err)
	require.Len(t, ctrls, 1)
	require.Len(t, ctrls[0].Methods, 3)
	assert.Nil(t, ctrls[0].Methods[0].Func)
	assert.NotNil(t, ctrls[0].Methods[1].Func)
	assert.Equal(t, []string{"id"}, ctrls[0].Methods[1].Bind)

	table, err := handler.NewBuilder().Add(ctrls...).Build()
	require.NoError(t, err)

	m, err := handler.NewResolver(table).ResolveRequest(&handler.Request{
		Path:   "/persons/7",
		Method: http.MethodPost,
		Params: map[string][]string{"cmd": {"update"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Persons.Update", m.Candidate.Name())
	assert.Equal(t, "7", m.Vars["id"])

	m, err = handler.NewResolver(table).ResolveRequest(&handler.Request{Path: "/persons/7", Method: http.MethodGet})
	require.NoError(t, err)
	assert.True(t, m.Candidate.Invocable())

	_, err = personsManifest.Declarations(map[string]any{"Persons.Delete": show})
	assert.ErrorContains(t, err, "undeclared handler Persons.Delete")
}
