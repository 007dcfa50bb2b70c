package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	viewer "github.com/legend-exp/leds_go/pkg"
)

// LoadConfiguration reads a JSON or TOML file over the default values and
// applies the LEDS_* environment overrides. An empty filename only uses the
// defaults and the environment.
func LoadConfiguration(filename string) (viewer.Configuration, error) {
	config := viewer.DefaultConfiguration()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".toml":
			if _, err := toml.Decode(string(data), &config); err != nil {
				return config, fmt.Errorf("failed to decode config: %w", err)
			}
		default:
			if err := json.Unmarshal(data, &config); err != nil {
				return config, err
			}
		}
	}

	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse env: %w", err)
	}
	if config.PlayIntervalMs < 0 {
		return config, fmt.Errorf("play_interval_ms must not be negative")
	}
	return config, nil
}

func printConfiguration(config viewer.Configuration, logger *slog.Logger) {
	logger.Info(fmt.Sprintf("Raw tier: %s", config.TierRaw), "module", "config")
	logger.Info(fmt.Sprintf("Dsp tier: %s", config.TierDsp), "module", "config")
	logger.Info(fmt.Sprintf("Hit tier: %s", config.TierHit), "module", "config")
	logger.Info(fmt.Sprintf("Experiment: %s", config.Experiment), "module", "config")
	logger.Info(fmt.Sprintf("Data type: %s", config.DataType), "module", "config")
	logger.Info(fmt.Sprintf("Extension: %s", config.Extension), "module", "config")
	logger.Info(fmt.Sprintf("Metadata driver: %s", config.MetadataDriver), "module", "config")
	logger.Info(fmt.Sprintf("Metadata path: %s", config.MetadataPath), "module", "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "module", "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "module", "config")
	logger.Info(fmt.Sprintf("Baseline channel: %s", config.BaselineChannel), "module", "config")
	logger.Info(fmt.Sprintf("Energy parameter: %s", config.EnergyParameter), "module", "config")
	logger.Info(fmt.Sprintf("Energy threshold: %.1f", config.EnergyThreshold), "module", "config")
	logger.Info(fmt.Sprintf("Play interval: %d ms", config.PlayIntervalMs), "module", "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "module", "config")
	logger.Info(fmt.Sprintf("Log file: %s", config.LogFile), "module", "config")
}
