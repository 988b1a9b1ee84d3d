package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"truthbyte/inspect"
)

// fileConfig is the YAML configuration file. Pointer fields tell an absent
// key apart from a zero value.
type fileConfig struct {
	BlockSize         *int   `yaml:"block_size"`
	QuickProbeEnabled *bool  `yaml:"quick_probe_enabled"`
	QuickProbeSteps   *int   `yaml:"quick_probe_steps"`
	LogLevel          string `yaml:"log_level"`
	LogFile           string `yaml:"log_file"`
}

// settings is the resolved configuration for one command.
type settings struct {
	Engine   inspect.Config
	LogLevel string
	LogFile  string
}

func defaultSettings() settings {
	return settings{Engine: inspect.DefaultConfig(), LogLevel: "info"}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (settings, error) {
	s := defaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrap(err, "read config")
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return s, errors.Wrapf(err, "parse config %s", path)
	}
	if fc.BlockSize != nil {
		s.Engine.BlockSize = *fc.BlockSize
	}
	if fc.QuickProbeEnabled != nil {
		s.Engine.QuickProbeEnabled = *fc.QuickProbeEnabled
	}
	if fc.QuickProbeSteps != nil {
		s.Engine.QuickProbeSteps = *fc.QuickProbeSteps
	}
	if fc.LogLevel != "" {
		s.LogLevel = fc.LogLevel
	}
	if fc.LogFile != "" {
		s.LogFile = fc.LogFile
	}
	return s, nil
}

// globalFlags are the persistent flags shared by every command. Zero values
// mean "not given" and leave the file or default value alone.
type globalFlags struct {
	configPath string
	blockSize  int
	logLevel   string
	logFile    string
	noProbe    bool
	probeSteps int
}

// apply layers flags over s and validates the result.
func (g globalFlags) apply(s settings) (settings, error) {
	if g.blockSize != 0 {
		s.Engine.BlockSize = g.blockSize
	}
	if g.logLevel != "" {
		s.LogLevel = g.logLevel
	}
	if g.logFile != "" {
		s.LogFile = g.logFile
	}
	if g.noProbe {
		s.Engine.QuickProbeEnabled = false
	}
	if g.probeSteps != 0 {
		s.Engine.QuickProbeSteps = g.probeSteps
	}
	if _, err := inspect.ResolveBlockSize(s.Engine.BlockSize); err != nil {
		return s, err
	}
	return s, nil
}
