package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from a zero value, so a partial file only
// overrides what it names.
type JsonConfig struct {
	DataDir          *string   `json:"data_dir"`
	KDF              *string   `json:"kdf"`
	KDFIterations    *int      `json:"kdf_iterations"`
	ChunkSize        *int      `json:"chunk_size"`
	Protection       *string   `json:"protection"`
	ClipboardTimeout *Duration `json:"clipboard_timeout"`
	LogLevel         *string   `json:"log_level"`
	UI               *string   `json:"ui"`
	SeedSampleData   *bool     `json:"seed_sample_data"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag it does nothing.
func parseJson(cfg *Config) error {
	path := configFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.DataDir != nil {
		cfg.DataDir = *jc.DataDir
	}
	if jc.KDF != nil {
		cfg.KDF = *jc.KDF
	}
	if jc.KDFIterations != nil {
		cfg.KDFIterations = *jc.KDFIterations
	}
	if jc.ChunkSize != nil {
		cfg.ChunkSize = *jc.ChunkSize
	}
	if jc.Protection != nil {
		cfg.Protection = *jc.Protection
	}
	if jc.ClipboardTimeout != nil {
		cfg.ClipboardTimeout = jc.ClipboardTimeout.Duration
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.UI != nil {
		cfg.UI = *jc.UI
	}
	if jc.SeedSampleData != nil {
		cfg.SeedSampleData = *jc.SeedSampleData
	}
}
