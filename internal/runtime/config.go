// Package runtime wires the series pool, scratch buffers, device layer,
// and port schemes into one process-wide context and exposes the native
// surface on top of them.
package runtime

import (
	"os"

	"github.com/BurntSushi/toml"

	"rebo/internal/trace"
)

// Config is the boot configuration, decodable from TOML.
type Config struct {
	// TraceLevel is off, error, port, or debug.
	TraceLevel string `toml:"trace_level"`
	// Ballast is the allocation budget between automatic recycles.
	Ballast int `toml:"ballast"`
	// EvalLimit bounds evaluation counting; 0 means unlimited.
	EvalLimit int64 `toml:"eval_limit"`
	// MemLimit bounds series allocation; 0 means unlimited.
	MemLimit int64 `toml:"mem_limit"`
}

// DefaultConfig returns the boot defaults.
func DefaultConfig() Config {
	return Config{
		TraceLevel: "off",
		Ballast:    3_000_000,
	}
}

// LoadConfig reads a TOML config file, falling back to defaults when
// the file is absent.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// tracerFor builds the tracer the config asks for.
func tracerFor(cfg Config) trace.Tracer {
	level, err := trace.ParseLevel(cfg.TraceLevel)
	if err != nil || level == trace.LevelOff {
		return trace.Nop
	}
	return trace.NewStreamTracer(os.Stderr, level)
}
