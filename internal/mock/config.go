package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads a mock configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	seen := make(map[string]bool)
	for i, file := range config.Files {
		if file.Name == "" {
			return fmt.Errorf("file %d: name is required", i)
		}
		if seen[file.Name] {
			return fmt.Errorf("file %d: duplicate name %q", i, file.Name)
		}
		seen[file.Name] = true

		for j, sheet := range file.Sheets {
			if sheet.Name == "" {
				return fmt.Errorf("file %q sheet %d: name is required", file.Name, j)
			}
			for k, row := range sheet.Rows {
				if len(row) > len(sheet.Columns) {
					return fmt.Errorf("file %q sheet %q row %d: %d values for %d columns",
						file.Name, sheet.Name, k, len(row), len(sheet.Columns))
				}
			}
		}
	}
	if config.BasePath != "" && !strings.HasPrefix(config.BasePath, "/") {
		return fmt.Errorf("basePath must start with '/'")
	}
	return nil
}

// SaveConfig saves a mock configuration to a file
func SaveConfig(config *Config, path string) error {
	var data []byte
	var err error

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a small inventory workbook so the client has
// something to show out of the box.
func DefaultConfig() *Config {
	return &Config{
		Port:    5002,
		Host:    "localhost",
		Logging: true,
		User:    "mock",
		Files: []SeedFile{
			{
				Name: "inventory.xlsx",
				Sheets: []SeedSheet{
					{
						Name:    "stok",
						Columns: []string{"Code", "Item", "Quantity", "Price"},
						Rows: [][]any{
							{"A-100", "Bolt", 120, 0.25},
							{"A-101", "Nut", 340, 0.1},
							{"B-200", "Washer", 75, 0.05},
						},
					},
					{
						Name:    "suppliers",
						Columns: []string{"Name", "Country"},
						Rows: [][]any{
							{"Acme", "CA"},
							{"Globex", "US"},
						},
					},
				},
			},
		},
	}
}
