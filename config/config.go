// Package config loads a Config value of runtime tuning knobs. Values come
// from DBTCORE_* environment variables, or an optional YAML file, via
// viper. No other package in this repository imports config: the ISA
// ports, stub, ibl and cmd/dbtcore all run without a Config.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/codecachelabs/dbtcore/xfer"
)

// TableConfig holds IBL sizing knobs for one TableKind.
type TableConfig struct {
	InitialCapacity int     `mapstructure:"initial_capacity"`
	MaxLoadFactor   float64 `mapstructure:"max_load_factor"`
}

// Config is the configuration value Load returns. Zero-valued fields are not valid; use
// Default() as a starting point rather than the zero Config.
type Config struct {
	// ISA names the port selection: "x86-64", "arm64", or "riscv64".
	ISA string `mapstructure:"isa"`

	// Tables maps a TableKind's String() ("bb_ret", "trace_indcall", ...)
	// to its sizing. Kinds absent from this map fall back to DefaultTable.
	Tables       map[string]TableConfig `mapstructure:"tables"`
	DefaultTable TableConfig            `mapstructure:"default_table"`

	// StubSizeOverride, when non-zero, names a stub size to use in place
	// of the selected ISA port's own StubSize() (spec.md §4.4's "size
	// budget" is a per-ISA default; an embedder with unusually large
	// LinkStub descriptors may need more headroom). No package in this
	// repository reads it.
	StubSizeOverride int `mapstructure:"stub_size_override"`

	// HotPatchICacheSync, when false, asks that a hot_patch=true patch skip
	// its icache-invalidation call (spec.md §4.4); only meaningful on ISAs
	// with a non-coherent icache (arm64). Defaults true. No package in this
	// repository reads it.
	HotPatchICacheSync bool `mapstructure:"hot_patch_icache_sync"`
}

// Default returns the out-of-the-box configuration: a six-table IBL layout
// at capacity 256 each with a 0.75 max load factor, no stub size override,
// and icache sync on.
func Default() Config {
	return Config{
		ISA:                "arm64",
		DefaultTable:       TableConfig{InitialCapacity: 256, MaxLoadFactor: 0.75},
		Tables:             map[string]TableConfig{},
		HotPatchICacheSync: true,
	}
}

// TableFor resolves kind's sizing, falling back to c.DefaultTable.
func (c Config) TableFor(kind xfer.TableKind) TableConfig {
	if tc, ok := c.Tables[kind.String()]; ok {
		return tc
	}
	return c.DefaultTable
}

// Load reads configuration from an optional YAML file at path (skipped if
// path is empty; no default config file location is searched) and from DBTCORE_*
// environment variables, which always take precedence over the file. Unset
// values fall back to Default().
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DBTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("isa", def.ISA)
	v.SetDefault("default_table.initial_capacity", def.DefaultTable.InitialCapacity)
	v.SetDefault("default_table.max_load_factor", def.DefaultTable.MaxLoadFactor)
	v.SetDefault("hot_patch_icache_sync", def.HotPatchICacheSync)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if cfg.Tables == nil {
		cfg.Tables = map[string]TableConfig{}
	}
	return cfg, nil
}
