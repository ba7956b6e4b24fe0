package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/plog"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "pgl-pdfcompress.config.json"

type ToolConfig struct {
	// Package is the distribution package checked before the run (dpkg).
	Package string `json:"package"`
	// Binary is the executable probed on PATH when the package query is unavailable.
	Binary string `json:"binary"`
	// CommandTemplate is the external command line. The tokens <QUALITY>,
	// <OUTPUT> and <SOURCE> are substituted per file.
	// SECURITY: The command is executed as provided. Ensure it is from a trusted source.
	CommandTemplate string `json:"commandTemplate"`
	// RequireCheck controls whether the tool precondition is verified at all.
	RequireCheck bool `json:"requireCheck"`
}

type MatchConfig struct {
	Extension string `json:"extension"`
	Recursive bool   `json:"recursive"`
	// MatchContains switches to substring matching anywhere in the filename.
	// Off by default; suffix matching is almost always what is wanted.
	MatchContains  bool `json:"matchContains"`
	PruneEmptyDirs bool `json:"pruneEmptyDirs"`
}

type EngineConfig struct {
	// Name selects the compression engine: "external", "gzip" or "zstd".
	Name string `json:"name"`
	// Quality is the external tool's preset: "screen", "ebook", "printer" or "prepress".
	Quality string `json:"quality"`
	// Level is the native codec level: "default", "fastest", "better" or "best".
	Level        string `json:"level"`
	Workers      int    `json:"workers"`
	Metrics      bool   `json:"metrics"`
	FailFast     bool   `json:"failFast"`
	BufferSizeKB int    `json:"bufferSizeKB" comment:"Size of the I/O buffer in kilobytes for native compression. Default is 256 (256KB)."`
}

type RuntimeConfig struct {
	DryRun bool
}

type Config struct {
	Version  string        `json:"version"`
	Source   string        `json:"source"`
	Output   string        `json:"output"`
	LogLevel string        `json:"logLevel"`
	Runtime  RuntimeConfig `json:"-"` // Never added to config file
	Tool     ToolConfig    `json:"tool"`
	Match    MatchConfig   `json:"match"`
	Engine   EngineConfig  `json:"engine"`
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Version:  "dev",
		Source:   "",     // Intentionally empty to force user configuration.
		Output:   "",     // Intentionally empty to force user configuration.
		LogLevel: "info", // Default log level.
		Runtime: RuntimeConfig{
			DryRun: false,
		},
		Tool: ToolConfig{
			Package:         "ghostscript",
			Binary:          "gs",
			CommandTemplate: "", // Empty means the built-in ghostscript template.
			RequireCheck:    true,
		},
		Match: MatchConfig{
			Extension:      ".pdf",
			Recursive:      false, // Top-level only per default.
			MatchContains:  false,
			PruneEmptyDirs: false, // Keep the full directory structure per default.
		},
		Engine: EngineConfig{
			Name:         "external",
			Quality:      "printer", // Good balance of size and fidelity.
			Level:        "default",
			Workers:      1,    // Sequential per default. The external tool is CPU-bound on its own.
			Metrics:      true, // Default to enabled for detailed file-counting metrics.
			FailFast:     false,
			BufferSizeKB: 256, // Default to 256KB buffer. Keep it between 64KB-4MB
		},
	}
}

// Load attempts to load a configuration from "pgl-pdfcompress.config.json" in
// the given directory. If the file doesn't exist, it returns the default
// config without an error. If the file exists but fails to parse, it returns
// an error and a zero-value config.
func Load(dir string) (Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for load directory %s: %w", dir, err)
	}

	configPath := filepath.Join(absDir, ConfigFileName)

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil // Config file doesn't exist, which is a normal case.
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", configPath, err)
	}
	defer file.Close()

	plog.Info("Loading configuration", "path", configPath)
	// Start with default values, then overwrite with the file's content.
	// This makes the config loading resilient to missing fields in the JSON file.
	config := NewDefault()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}
	return config, nil
}

// Generate creates or overwrites a default pgl-pdfcompress.config.json file in
// the specified directory.
func Generate(configToGenerate Config, dir string) error {
	configPath := filepath.Join(dir, ConfigFileName)
	jsonData, err := json.MarshalIndent(configToGenerate, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", configPath)
	return nil
}

// Validate checks the configuration for logical errors and inconsistencies.
// It performs strict checks, including ensuring the source path is non-empty
// and exists. Parsing of the engine, quality and level strings happens in the
// planner, not here.
func (c *Config) Validate(checkSource bool) error {
	if checkSource && c.Source == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	// Clean and expand paths for canonical representation before use.
	var err error

	if c.Source != "" {
		c.Source, err = util.ExpandPath(c.Source)
		if err != nil {
			return fmt.Errorf("could not expand source path: %w", err)
		}
		c.Source = filepath.Clean(c.Source)

		if checkSource {
			if _, err := os.Stat(c.Source); os.IsNotExist(err) {
				return fmt.Errorf("source path '%s' does not exist", c.Source)
			}
		}
	}

	c.Output, err = util.ExpandPath(c.Output)
	if err != nil {
		return fmt.Errorf("could not expand output path: %w", err)
	}
	c.Output = filepath.Clean(c.Output)

	if c.Source != "" && c.Source == c.Output {
		return fmt.Errorf("source and output paths cannot be the same")
	}

	if c.Match.Extension == "" {
		return fmt.Errorf("match.extension cannot be empty")
	}
	if !c.Match.MatchContains && !strings.HasPrefix(c.Match.Extension, ".") {
		return fmt.Errorf("match.extension must start with '.' when suffix matching is used")
	}

	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1")
	}
	if c.Engine.BufferSizeKB <= 0 {
		return fmt.Errorf("engine.bufferSizeKB must be greater than 0")
	}
	return nil
}

// LogSummary prints a user-friendly summary of the configuration.
func (c *Config) LogSummary() {
	logArgs := []interface{}{
		"log_level", c.LogLevel,
		"source", c.Source,
		"output", c.Output,
		"dry_run", c.Runtime.DryRun,
		"extension", c.Match.Extension,
		"recursive", c.Match.Recursive,
		"engine", c.Engine.Name,
		"workers", c.Engine.Workers,
		"metrics", c.Engine.Metrics,
	}
	switch c.Engine.Name {
	case "external":
		logArgs = append(logArgs, "quality", c.Engine.Quality)
		if c.Tool.RequireCheck {
			toolSummary := fmt.Sprintf("%s (b:%s)", c.Tool.Package, c.Tool.Binary)
			logArgs = append(logArgs, "tool", toolSummary)
		}
	default:
		logArgs = append(logArgs, "level", c.Engine.Level)
		logArgs = append(logArgs, "buffer_size_kb", c.Engine.BufferSizeKB)
	}
	if c.Match.MatchContains {
		logArgs = append(logArgs, "match_contains", true)
	}
	if c.Match.PruneEmptyDirs {
		logArgs = append(logArgs, "prune_empty_dirs", true)
	}
	plog.Info("Configuration loaded", logArgs...)
}

// MergeConfigWithFlags overlays the configuration values from flags on top of
// a base configuration. It iterates over the setFlags map, which contains only
// the flags explicitly provided by the user on the command line.
func MergeConfigWithFlags(base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "source":
			merged.Source = value.(string)
		case "output":
			merged.Output = value.(string)
		case "log-level":
			merged.LogLevel = value.(string)
		case "dry-run":
			merged.Runtime.DryRun = value.(bool)
		case "extension":
			merged.Match.Extension = value.(string)
		case "recursive":
			merged.Match.Recursive = value.(bool)
		case "match-contains":
			merged.Match.MatchContains = value.(bool)
		case "prune-empty-dirs":
			merged.Match.PruneEmptyDirs = value.(bool)
		case "engine":
			merged.Engine.Name = value.(string)
		case "quality":
			merged.Engine.Quality = value.(string)
		case "level":
			merged.Engine.Level = value.(string)
		case "workers":
			merged.Engine.Workers = value.(int)
		case "metrics":
			merged.Engine.Metrics = value.(bool)
		case "fail-fast":
			merged.Engine.FailFast = value.(bool)
		case "buffer-size-kb":
			merged.Engine.BufferSizeKB = value.(int)
		case "tool-package":
			merged.Tool.Package = value.(string)
		case "tool-binary":
			merged.Tool.Binary = value.(string)
		case "command-template":
			merged.Tool.CommandTemplate = value.(string)
		case "skip-tool-check":
			merged.Tool.RequireCheck = !value.(bool)
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}
	return merged
}
