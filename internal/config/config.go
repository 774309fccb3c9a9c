// Package config loads the argonbridge configuration via viper.
package config

import (
	"github.com/spf13/viper"
)

// Config is the top-level configuration.
type Config struct {
	// ArtifactDir is the directory holding manifest.yaml and the guest
	// binary. Empty selects the native in-process engine.
	ArtifactDir string `mapstructure:"artifact_dir"`

	LogLevel string `mapstructure:"log_level"`

	Wasm WasmConfig `mapstructure:"wasm"`
	Hash HashConfig `mapstructure:"hash"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Compilation cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
}

// HashConfig holds default hashing parameters for the CLI. Zero values
// fall through to the algorithm defaults.
type HashConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	Memory    uint32 `mapstructure:"memory"`
	Time      uint32 `mapstructure:"time"`
	Threads   uint8  `mapstructure:"threads"`
	SaltLen   int    `mapstructure:"salt_len"`
}

// Load reads configuration from an optional file, applying defaults for
// everything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("artifact_dir", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.debug", false)

	v.SetDefault("hash.algorithm", "")
	v.SetDefault("hash.memory", 0)
	v.SetDefault("hash.time", 0)
	v.SetDefault("hash.threads", 0)
	v.SetDefault("hash.salt_len", 16)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
