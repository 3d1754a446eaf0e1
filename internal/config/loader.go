package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr must not be empty"))
	}

	if err := cfg.Feature.Pipeline().Validate(); err != nil {
		errs = append(errs, err)
	}

	if cfg.Decode.BeamWidth < 1 {
		errs = append(errs, fmt.Errorf("decode.beam_width must be >= 1, got %d", cfg.Decode.BeamWidth))
	}
	if cfg.Decode.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("decode.chunk_size must be >= 1, got %d", cfg.Decode.ChunkSize))
	}
	if cfg.Decode.BlankID < 0 {
		errs = append(errs, fmt.Errorf("decode.blank_id must be >= 0, got %d", cfg.Decode.BlankID))
	}
	for _, id := range cfg.Decode.ExcludeIDs {
		if id < 0 {
			errs = append(errs, fmt.Errorf("decode.exclude_ids contains negative id %d", id))
		}
	}

	if cfg.Model.WeightsPath == "" {
		errs = append(errs, errors.New("model.weights_path must not be empty"))
	}
	if cfg.Model.SymbolsPath == "" {
		errs = append(errs, errors.New("model.symbols_path must not be empty"))
	}

	return errors.Join(errs...)
}
