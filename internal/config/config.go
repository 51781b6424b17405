// Package config loads the application configuration from global and project
// files plus environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/author-ai/author/pkg/types"
)

// Load builds the configuration from multiple sources (priority order):
// 1. Built-in defaults
// 2. Global config (~/.author/author.{json,jsonc,yaml})
// 3. Project config (<directory>/author.{json,jsonc,yaml}, <directory>/.author/…)
// 4. AUTHOR_CONFIG file
// 5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := Default()

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return
		}
		if loadConfigFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		globalDir := filepath.Join(home, ".author")
		for _, name := range configFileNames {
			loadOnce(filepath.Join(globalDir, name))
		}
	}

	if directory != "" {
		for _, name := range configFileNames {
			loadOnce(filepath.Join(directory, name))
			loadOnce(filepath.Join(directory, ".author", name))
		}
	}

	if configPath := os.Getenv("AUTHOR_CONFIG"); configPath != "" {
		loadOnce(configPath)
	}

	applyEnvOverrides(config)

	if config.DataDir == "" {
		config.DataDir = DefaultDataDir()
	}
	return config, nil
}

var configFileNames = []string{"author.json", "author.jsonc", "author.yaml"}

// Default returns the built-in configuration.
func Default() *types.Config {
	return &types.Config{
		Model:       "gpt-4o",
		BaseURL:     "https://api.openai.com/v1",
		Mode:        types.ModeFiction,
		MaxTokens:   4096,
		Temperature: 0.7,
		LogLevel:    "info",
	}
}

// loadConfigFile merges one file into config. JSON files may carry comments;
// YAML is selected by extension.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fileConfig types.Config
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(jsonc.ToJSON(data), &fileConfig); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// mergeConfig merges source into target; set fields win.
func mergeConfig(target, source *types.Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.BaseURL != "" {
		target.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		target.APIKey = source.APIKey
	}
	if source.Mode != "" {
		target.Mode = source.Mode
	}
	if source.MaxTokens > 0 {
		target.MaxTokens = source.MaxTokens
	}
	if source.Temperature > 0 {
		target.Temperature = source.Temperature
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
}

// applyEnvOverrides applies environment variable overrides, the highest
// priority source.
func applyEnvOverrides(config *types.Config) {
	if v := os.Getenv("AUTHOR_MODEL"); v != "" {
		config.Model = v
	}
	if v := os.Getenv("AUTHOR_BASE_URL"); v != "" {
		config.BaseURL = v
	}
	if v := os.Getenv("AUTHOR_API_KEY"); v != "" {
		config.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.APIKey == "" {
		config.APIKey = v
	}
	if v := os.Getenv("AUTHOR_MODE"); v != "" {
		config.Mode = v
	}
	if v := os.Getenv("AUTHOR_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxTokens = n
		}
	}
	if v := os.Getenv("AUTHOR_DATA_DIR"); v != "" {
		config.DataDir = v
	}
	if v := os.Getenv("AUTHOR_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
}

// Save writes the configuration to a file.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
