// Package config loads the settings of a dispatcher from a file and the
// environment.
//
// Every key may be overridden by an environment variable named after it
// with a GEEMVC_ prefix, dots replaced by underscores, e.g.
// GEEMVC_ROUTING_STRICT_AMBIGUITY=true.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/CommerceBoard/geemvc/adapter"
	"github.com/CommerceBoard/geemvc/bind"
	"github.com/CommerceBoard/geemvc/convert"
	"github.com/CommerceBoard/geemvc/data"
	"github.com/CommerceBoard/geemvc/dispatch"
	"github.com/CommerceBoard/geemvc/handler"
	"github.com/CommerceBoard/geemvc/script"
	"github.com/CommerceBoard/geemvc/view"
)

// EnvPrefix prefixes the environment variables overriding settings.
const EnvPrefix = "GEEMVC"

// DefaultName is the base name of the settings file searched in the
// working directory.
const DefaultName = "geemvc"

// Settings is the complete configuration.
type Settings struct {
	Log     LogSettings     `mapstructure:"log"`
	Script  ScriptSettings  `mapstructure:"script"`
	Routing RoutingSettings `mapstructure:"routing"`
	Binding BindingSettings `mapstructure:"binding"`
	View    ViewSettings    `mapstructure:"view"`
	Metrics MetricsSettings `mapstructure:"metrics"`
	Data    DataSettings    `mapstructure:"data"`
}

type LogSettings struct {
	Level       zapcore.Level `mapstructure:"level"`
	Development bool          `mapstructure:"development"`
}

type ScriptSettings struct {
	DefaultDialect script.Dialect `mapstructure:"default_dialect"`
	LuaTimeout     time.Duration  `mapstructure:"lua_timeout"`
}

type RoutingSettings struct {
	// StrictAmbiguity fails the build of a handler table with ambiguous
	// mappings instead of logging a warning.
	StrictAmbiguity     bool     `mapstructure:"strict_ambiguity"`
	ControllerResolvers []string `mapstructure:"controller_resolvers"`
}

type BindingSettings struct {
	MaxDepth    int      `mapstructure:"max_depth"`
	MaxSliceLen int      `mapstructure:"max_slice_len"`
	TimeLayouts []string `mapstructure:"time_layouts"`
}

type ViewSettings struct {
	Default string `mapstructure:"default"`
}

type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

type DataSettings struct {
	Redis RedisSettings `mapstructure:"redis"`
}

// RedisSettings configure the Redis data store. An empty address disables
// it.
type RedisSettings struct {
	Addr   string `mapstructure:"addr"`
	DB     int    `mapstructure:"db"`
	Prefix string `mapstructure:"prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("script.default_dialect", string(script.CEL))
	v.SetDefault("script.lua_timeout", script.DefaultLuaTimeout)
	v.SetDefault("routing.strict_ambiguity", false)
	v.SetDefault("routing.controller_resolvers", []string{"prefix"})
	v.SetDefault("binding.max_depth", bind.DefaultMaxDepth)
	v.SetDefault("binding.max_slice_len", bind.DefaultMaxSliceLen)
	v.SetDefault("binding.time_layouts", []string{})
	v.SetDefault("view.default", view.DefaultView)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("data.redis.addr", "")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.prefix", data.DefaultRedisPrefix)
}

// Load reads the settings. With an empty path a file named geemvc.yaml,
// .yml, .toml or .json in the working directory is used if present;
// otherwise defaults and environment variables apply.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var s Settings
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&s, hook); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks settings that cannot be decoded into an invalid state by
// their types alone.
func (s *Settings) Validate() error {
	if _, err := script.ParseDialect(string(s.Script.DefaultDialect)); err != nil {
		return fmt.Errorf("config: script.default_dialect: %w", err)
	}
	if s.Script.LuaTimeout < 0 {
		return fmt.Errorf("config: script.lua_timeout must not be negative, got %s", s.Script.LuaTimeout)
	}
	if _, err := s.ControllerResolvers(); err != nil {
		return fmt.Errorf("config: routing.controller_resolvers: %w", err)
	}
	if s.Binding.MaxDepth <= 0 {
		return fmt.Errorf("config: binding.max_depth must be positive, got %d", s.Binding.MaxDepth)
	}
	if s.Binding.MaxSliceLen <= 0 {
		return fmt.Errorf("config: binding.max_slice_len must be positive, got %d", s.Binding.MaxSliceLen)
	}
	if s.View.Default == "" {
		return errors.New("config: view.default must not be empty")
	}
	return nil
}

// Logger builds the logger described by the log settings.
func (s *Settings) Logger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if s.Log.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(s.Log.Level)
	return cfg.Build()
}

// Engines returns the script engines with the configured default dialect.
func (s *Settings) Engines() (*script.Engines, error) {
	var opts []script.LuaOption
	if s.Script.LuaTimeout > 0 {
		opts = append(opts, script.WithLuaTimeout(s.Script.LuaTimeout))
	}
	return script.NewEngines(s.Script.DefaultDialect, script.NewCEL(), script.NewLua(opts...))
}

// ControllerResolvers returns the configured controller resolvers.
func (s *Settings) ControllerResolvers() ([]handler.ControllerResolver, error) {
	out := make([]handler.ControllerResolver, 0, len(s.Routing.ControllerResolvers))
	for _, name := range s.Routing.ControllerResolvers {
		r, err := handler.ControllerResolverByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// HandlerOptions returns the options of a handler table builder.
func (s *Settings) HandlerOptions(logger *zap.Logger) ([]handler.Option, error) {
	engines, err := s.Engines()
	if err != nil {
		return nil, err
	}
	return []handler.Option{
		handler.WithLogger(logger),
		handler.WithStrict(s.Routing.StrictAmbiguity),
		handler.WithEngines(engines),
	}, nil
}

// ConvertOptions returns the options of the built-in converters.
func (s *Settings) ConvertOptions() []convert.Option {
	if len(s.Binding.TimeLayouts) == 0 {
		return nil
	}
	return []convert.Option{convert.WithTimeLayouts(s.Binding.TimeLayouts...)}
}

// DispatchOptions returns the options of a dispatcher for table t using the
// adapters of reg. When metrics are enabled their collectors are
// registered with metrics.
func (s *Settings) DispatchOptions(t *handler.Table, reg *adapter.Registry, logger *zap.Logger, metrics prometheus.Registerer) ([]dispatch.Option, error) {
	resolvers, err := s.ControllerResolvers()
	if err != nil {
		return nil, err
	}

	opts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithResolver(handler.NewResolver(t,
			handler.WithResolverLogger(logger),
			handler.WithControllerResolvers(resolvers...),
		)),
		dispatch.WithBinder(bind.New(reg,
			bind.WithLogger(logger),
			bind.WithMaxDepth(s.Binding.MaxDepth),
			bind.WithMaxSliceLen(s.Binding.MaxSliceLen),
		)),
		dispatch.WithViews(view.NewWriter(reg,
			view.WithLogger(logger),
			view.WithDefault(s.View.Default),
		)),
	}

	if s.Metrics.Enabled {
		m, err := dispatch.NewMetrics(metrics)
		if err != nil {
			return nil, fmt.Errorf("config: metrics: %w", err)
		}
		opts = append(opts, dispatch.WithMetrics(m))
	}
	return opts, nil
}

// RedisClient returns a client for the configured Redis data store, or nil
// when none is configured.
func (s *Settings) RedisClient() *redis.Client {
	if s.Data.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: s.Data.Redis.Addr, DB: s.Data.Redis.DB})
}

// DataStore returns the Redis store when Redis is configured and an
// in-memory store otherwise, restricted to types.
func (s *Settings) DataStore(types ...reflect.Type) data.Store {
	if client := s.RedisClient(); client != nil {
		return data.NewRedis(client, s.Data.Redis.Prefix, types...)
	}
	return data.NewMemory(types...)
}
