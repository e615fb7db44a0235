package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-sim/internal/config"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"gopkg.in/yaml.v3"
)

const (
	schemaName       = "argo-sim-config.json"
	sampleConfigName = "argo-sim-config.yaml"
)

func main() {
	schemaPath := filepath.Join("./config", schemaName)
	sampleConfigPath := filepath.Join("./config", sampleConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		log.Fatal(err)
	}

	cfg := sampleConfig()

	if err := generateSchemaFile(cfg, schemaPath); err != nil {
		log.Fatal(err)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	if err := generateSampleConfig(cfg, sampleConfigPath, schemaName); err != nil {
		log.Fatal(err)
	}
}

// sampleConfig is the default config with one strategy so it passes validation once a
// data path is filled in.
func sampleConfig() config.Config {
	cfg := config.Defaults()
	cfg.DataPath = "data/AAPL.parquet"
	cfg.InitialCash = 10000
	cfg.Strategies = []config.StrategyConfig{
		{Name: strategy.BreakoutName, Params: strategy.Params{"period": 20}},
	}

	return cfg
}

func generateSchemaFile(cfg config.Config, schemaPath string) error {
	schemaJSON, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes cfg as YAML unless samplePath already exists.
func generateSampleConfig(cfg config.Config, samplePath string, schema string) error {
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte(getSchemaReference(schema)), yamlBytes...)

	if err := os.MkdirAll(filepath.Dir(samplePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	log.Printf("Sample config successfully generated at %s", samplePath)

	return nil
}

func validatePaths(schemaPath string, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return validateSchemaName(filepath.Base(schemaPath))
}

func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(name, ".json") {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

func getSchemaReference(schema string) string {
	return "# yaml-language-server: $schema=" + schema + "\n"
}
