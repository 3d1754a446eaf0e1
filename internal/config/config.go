// Package config provides the configuration schema, loader, and validation
// for the Sonaq streaming decode server.
package config

import (
	"github.com/sonaq/sonaq/pkg/feature"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Sonaq. It is loaded once at
// startup via [Load] or [LoadFromReader] and shared read-only by every
// session; nothing mutates it after construction.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Feature FeatureConfig `yaml:"feature"`
	Decode  DecodeConfig  `yaml:"decode"`
	Model   ModelConfig   `yaml:"model"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the websocket server listens on
	// (e.g., ":10086").
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr is the TCP address of the Prometheus /metrics endpoint.
	// Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// FeatureConfig holds feature-extraction parameters. It mirrors
// [feature.Config]; see that type for field semantics.
type FeatureConfig struct {
	SampleRate    int                `yaml:"sample_rate"`
	FrameLengthMs int                `yaml:"frame_length_ms"`
	FrameShiftMs  int                `yaml:"frame_shift_ms"`
	NumMelBins    int                `yaml:"num_mel_bins"`
	PreEmphasis   float64            `yaml:"pre_emphasis"`
	TailPolicy    feature.TailPolicy `yaml:"tail_policy"`
}

// Pipeline converts the YAML block to a [feature.Config].
func (f FeatureConfig) Pipeline() feature.Config {
	return feature.Config{
		SampleRate:    f.SampleRate,
		FrameLengthMs: f.FrameLengthMs,
		FrameShiftMs:  f.FrameShiftMs,
		NumMelBins:    f.NumMelBins,
		PreEmphasis:   f.PreEmphasis,
		Tail:          f.TailPolicy,
	}
}

// DecodeConfig holds search parameters shared by all sessions.
type DecodeConfig struct {
	// BeamWidth is the number of hypotheses kept after each frame.
	BeamWidth int `yaml:"beam_width"`

	// ChunkSize bounds the number of frames per scorer call, which is also
	// the partial-result emission interval.
	ChunkSize int `yaml:"chunk_size"`

	// BlankID is the vocabulary index of the CTC blank symbol.
	BlankID int `yaml:"blank_id"`

	// ExcludeIDs lists symbol IDs stripped from rendered transcripts.
	ExcludeIDs []int `yaml:"exclude_ids"`
}

// ModelConfig points at the acoustic model artifacts loaded at startup.
type ModelConfig struct {
	// WeightsPath is the gob model file for the feed-forward scorer.
	WeightsPath string `yaml:"weights_path"`

	// SymbolsPath is the symbol table file ("token id" per line).
	SymbolsPath string `yaml:"symbols_path"`
}

// applyDefaults fills unset fields with working values.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":10086"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Feature.SampleRate == 0 {
		cfg.Feature.SampleRate = 16000
	}
	if cfg.Feature.FrameLengthMs == 0 {
		cfg.Feature.FrameLengthMs = 25
	}
	if cfg.Feature.FrameShiftMs == 0 {
		cfg.Feature.FrameShiftMs = 10
	}
	if cfg.Feature.NumMelBins == 0 {
		cfg.Feature.NumMelBins = 80
	}
	if cfg.Feature.TailPolicy == "" {
		cfg.Feature.TailPolicy = feature.TailPad
	}
	if cfg.Decode.BeamWidth == 0 {
		cfg.Decode.BeamWidth = 10
	}
	if cfg.Decode.ChunkSize == 0 {
		cfg.Decode.ChunkSize = 16
	}
}
