package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-sim/internal/config"
	"github.com/stretchr/testify/suite"
)

type GenerateCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func TestGenerateCmdSuite(t *testing.T) {
	suite.Run(t, new(GenerateCmdTestSuite))
}

func (suite *GenerateCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	suite.T().Chdir(suite.tempDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

func (suite *GenerateCmdTestSuite) TestMainWritesSchemaAndSample() {
	main()

	schemaPath := filepath.Join(suite.tempDir, "config", schemaName)
	suite.True(fileExists(schemaPath))

	samplePath := filepath.Join(suite.tempDir, "config", sampleConfigName)
	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Contains(string(content), "# yaml-language-server: $schema="+schemaName)
}

func (suite *GenerateCmdTestSuite) TestSampleConfigLoads() {
	main()

	cfg, err := config.Load(filepath.Join(suite.tempDir, "config", sampleConfigName))
	suite.Require().NoError(err)
	suite.Equal("data/AAPL.parquet", cfg.DataPath)
	suite.Require().Len(cfg.Strategies, 1)
	suite.Equal(20, cfg.Strategies[0].Params["period"])
}

func (suite *GenerateCmdTestSuite) TestSampleConfigNotOverwritten() {
	samplePath := filepath.Join(suite.tempDir, "existing.yaml")
	suite.Require().NoError(os.WriteFile(samplePath, []byte("existing content"), 0644))

	suite.Require().NoError(generateSampleConfig(sampleConfig(), samplePath, schemaName))

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("existing content", string(content))
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFile() {
	schemaPath := filepath.Join(suite.tempDir, "nested", "schema.json")

	suite.Require().NoError(generateSchemaFile(sampleConfig(), schemaPath))

	content, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)
	suite.Contains(string(content), "argo-sim-config")
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFileInvalidPath() {
	blocker := filepath.Join(suite.tempDir, "blocker")
	suite.Require().NoError(os.WriteFile(blocker, nil, 0644))

	err := generateSchemaFile(config.Defaults(), filepath.Join(blocker, "schema.json"))
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to")
}

func (suite *GenerateCmdTestSuite) TestValidatePaths() {
	suite.NoError(validatePaths("/some/path/schema.json", "/some/path/config.yaml"))

	err := validatePaths("", "/some/path/config.yaml")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "schema path cannot be empty")

	err = validatePaths("/some/path/schema.json", "")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "sample config path cannot be empty")
}

func (suite *GenerateCmdTestSuite) TestValidateSchemaName() {
	suite.NoError(validateSchemaName("schema.json"))

	err := validateSchemaName("")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "schema name cannot be empty")

	err = validateSchemaName("schema.txt")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "must have .json extension")
}

func (suite *GenerateCmdTestSuite) TestGetSchemaReference() {
	suite.Equal("# yaml-language-server: $schema=test-schema.json\n", getSchemaReference("test-schema.json"))
}
