package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/data"
	"github.com/CommerceBoard/geemvc/dispatch"
	"github.com/CommerceBoard/geemvc/handler"
	"github.com/CommerceBoard/geemvc/script"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, zapcore.InfoLevel, s.Log.Level)
	assert.False(t, s.Log.Development)
	assert.Equal(t, script.CEL, s.Script.DefaultDialect)
	assert.Equal(t, script.DefaultLuaTimeout, s.Script.LuaTimeout)
	assert.False(t, s.Routing.StrictAmbiguity)
	assert.Equal(t, []string{"prefix"}, s.Routing.ControllerResolvers)
	assert.Equal(t, 32, s.Binding.MaxDepth)
	assert.Equal(t, 1000, s.Binding.MaxSliceLen)
	assert.Empty(t, s.Binding.TimeLayouts)
	assert.Equal(t, "json", s.View.Default)
	assert.False(t, s.Metrics.Enabled)
	assert.Empty(t, s.Data.Redis.Addr)
	assert.Equal(t, data.DefaultRedisPrefix, s.Data.Redis.Prefix)
	assert.Nil(t, s.RedisClient())
	assert.Nil(t, s.ConvertOptions())
}

func TestLoadFiles(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "geemvc.yaml",
			content: `
log:
  level: debug
  development: true
script:
  default_dialect: lua
  lua_timeout: 250ms
routing:
  strict_ambiguity: true
  controller_resolvers: [all]
binding:
  max_depth: 8
  max_slice_len: 50
  time_layouts: ["02.01.2006"]
view:
  default: yaml
metrics:
  enabled: true
data:
  redis:
    addr: localhost:6379
    prefix: beans
`,
		},
		{
			name: "toml",
			file: "geemvc.toml",
			content: `
[log]
level = "debug"
development = true

[script]
default_dialect = "lua"
lua_timeout = "250ms"

[routing]
strict_ambiguity = true
controller_resolvers = ["all"]

[binding]
max_depth = 8
max_slice_len = 50
time_layouts = ["02.01.2006"]

[view]
default = "yaml"

[metrics]
enabled = true

[data.redis]
addr = "localhost:6379"
prefix = "beans"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, zapcore.DebugLevel, s.Log.Level)
			assert.True(t, s.Log.Development)
			assert.Equal(t, script.Lua, s.Script.DefaultDialect)
			assert.Equal(t, 250*time.Millisecond, s.Script.LuaTimeout)
			assert.True(t, s.Routing.StrictAmbiguity)
			assert.Equal(t, []string{"all"}, s.Routing.ControllerResolvers)
			assert.Equal(t, 8, s.Binding.MaxDepth)
			assert.Equal(t, 50, s.Binding.MaxSliceLen)
			assert.Equal(t, []string{"02.01.2006"}, s.Binding.TimeLayouts)
			assert.Equal(t, "yaml", s.View.Default)
			assert.True(t, s.Metrics.Enabled)
			assert.Equal(t, "localhost:6379", s.Data.Redis.Addr)
			assert.Equal(t, "beans", s.Data.Redis.Prefix)
			assert.Len(t, s.ConvertOptions(), 1)
		})
	}
}

func TestLoadFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geemvc.yaml"), []byte("view:\n  default: xml\n"), 0o600))
	t.Chdir(dir)

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "xml", s.View.Default)
}

func TestLoadEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEEMVC_ROUTING_STRICT_AMBIGUITY", "true")
	t.Setenv("GEEMVC_ROUTING_CONTROLLER_RESOLVERS", "prefix,all")
	t.Setenv("GEEMVC_BINDING_MAX_DEPTH", "4")
	t.Setenv("GEEMVC_SCRIPT_DEFAULT_DIALECT", "LUA")
	t.Setenv("GEEMVC_LOG_LEVEL", "warn")

	s, err := Load("")
	require.NoError(t, err)

	assert.True(t, s.Routing.StrictAmbiguity)
	assert.Equal(t, []string{"prefix", "all"}, s.Routing.ControllerResolvers)
	assert.Equal(t, 4, s.Binding.MaxDepth)
	assert.Equal(t, script.Lua, s.Script.DefaultDialect)
	assert.Equal(t, zapcore.WarnLevel, s.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown dialect", content: "script:\n  default_dialect: js\n"},
		{name: "unknown resolver", content: "routing:\n  controller_resolvers: [fuzzy]\n"},
		{name: "zero depth", content: "binding:\n  max_depth: 0\n"},
		{name: "negative slice length", content: "binding:\n  max_slice_len: -1\n"},
		{name: "empty view", content: "view:\n  default: \"\"\n"},
		{name: "bad duration", content: "script:\n  lua_timeout: soon\n"},
		{name: "bad level", content: "log:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "geemvc.yaml", tt.content))
			assert.ErrorContains(t, err, "config: ")
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "config: read")
	})
}

func TestSettingsComponents(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEEMVC_SCRIPT_DEFAULT_DIALECT", "lua")
	t.Setenv("GEEMVC_METRICS_ENABLED", "true")

	s, err := Load("")
	require.NoError(t, err)

	engines, err := s.Engines()
	require.NoError(t, err)
	assert.Equal(t, script.Lua, engines.DefaultDialect())
	assert.True(t, engines.Has(script.CEL))

	resolvers, err := s.ControllerResolvers()
	require.NoError(t, err)
	require.Len(t, resolvers, 1)
	assert.IsType(t, handler.PrefixResolver{}, resolvers[0])

	logger, err := s.Logger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	hopts, err := s.HandlerOptions(zap.NewNop())
	require.NoError(t, err)
	table, err := handler.NewBuilder(hopts...).Add(handler.Controller{
		Name:    "Persons",
		Path:    "/persons",
		Methods: []handler.Method{{Name: "Find", Params: []string{"id > 10"}}},
	}).Build()
	require.NoError(t, err)

	reg, err := dispatch.Register(adapter.NewBuilder(), s.ConvertOptions()...).Build()
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	dopts, err := s.DispatchOptions(table, reg, zap.NewNop(), promReg)
	require.NoError(t, err)
	assert.NotNil(t, dispatch.New(table, reg, dopts...))

	_, err = s.DispatchOptions(table, reg, zap.NewNop(), promReg)
	assert.Error(t, err)
}

func TestRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	s := &Settings{Data: DataSettings{Redis: RedisSettings{Addr: mr.Addr()}}}
	client := s.RedisClient()
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(t.Context(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestDataStore(t *testing.T) {
	type bean struct {
		Name string
	}
	beanType := reflect.TypeFor[bean]()

	t.Run("memory", func(t *testing.T) {
		s := &Settings{}
		assert.IsType(t, &data.Memory{}, s.DataStore(beanType))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Chdir(t.TempDir())

		s, err := Load("")
		require.NoError(t, err)
		s.Data.Redis.Addr = mr.Addr()

		store := s.DataStore(beanType)
		require.IsType(t, &data.Redis{}, store)
		t.Cleanup(func() { _ = store.(*data.Redis).Close() })

		require.NoError(t, store.Save(t.Context(), "1", &bean{Name: "a"}))
		assert.True(t, mr.Exists("geemvc:config.bean:1"))
	})
}
