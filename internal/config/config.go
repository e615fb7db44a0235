// Package config defines the run configuration of a backtest.
package config

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/broker/commission_fee"
	"github.com/rxtech-lab/argo-sim/internal/datasource"
	"github.com/rxtech-lab/argo-sim/internal/pricing"
	"github.com/rxtech-lab/argo-sim/internal/resolver"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/internal/version"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// StrategyConfig selects a registered strategy and its parameters.
type StrategyConfig struct {
	Name   string          `yaml:"name" toml:"name" json:"name" validate:"required" jsonschema:"title=Strategy,description=Registered strategy name"`
	Params strategy.Params `yaml:"params" toml:"params" json:"params,omitempty" jsonschema:"title=Parameters,description=Strategy specific parameters"`
}

// Config is the configuration of one backtest run.
type Config struct {
	Version          string                     `yaml:"version" toml:"version" json:"version,omitempty" jsonschema:"title=Version,description=Engine version the config was written for"`
	Name             string                     `yaml:"name" toml:"name" json:"name,omitempty" jsonschema:"title=Name,description=Run name used for the results folder"`
	DataPath         string                     `yaml:"data_path" toml:"data_path" json:"data_path" validate:"required" jsonschema:"title=Data Path,description=CSV or Parquet file with bars"`
	ResultsFolder    string                     `yaml:"results_folder" toml:"results_folder" json:"results_folder" validate:"required" jsonschema:"title=Results Folder"`
	JournalPath      string                     `yaml:"journal_path" toml:"journal_path" json:"journal_path,omitempty" jsonschema:"title=Journal Path,description=DuckDB journal file; empty keeps the journal in memory"`
	StartTime        optional.Option[time.Time] `yaml:"-" toml:"-" json:"start_time" jsonschema:"title=Start Time,description=Optional start time of the run"`
	EndTime          optional.Option[time.Time] `yaml:"-" toml:"-" json:"end_time" jsonschema:"title=End Time,description=Optional end time of the run"`
	InitialCash      float64                    `yaml:"initial_cash" toml:"initial_cash" json:"initial_cash" validate:"gte=0" jsonschema:"title=Initial Cash,minimum=0"`
	BaseCurrency     types.Currency             `yaml:"base_currency" toml:"base_currency" json:"base_currency" validate:"required,len=3" jsonschema:"title=Base Currency,default=USD"`
	MinimumReserve   float64                    `yaml:"minimum_reserve" toml:"minimum_reserve" json:"minimum_reserve" validate:"gte=0" jsonschema:"title=Minimum Reserve,description=Cash kept out of buying power,minimum=0"`
	Resolver         resolver.Policy            `yaml:"resolver" toml:"resolver" json:"resolver" jsonschema:"title=Signal Resolution Policy,default=sum"`
	Allocation       float64                    `yaml:"allocation" toml:"allocation" json:"allocation" validate:"gt=0,lte=1" jsonschema:"title=Allocation,description=Fraction of buying power committed to a full strength entry,default=1"`
	DecimalPrecision int                        `yaml:"decimal_precision" toml:"decimal_precision" json:"decimal_precision" validate:"gte=0,lte=12" jsonschema:"title=Decimal Precision,default=0"`
	AllowShort       bool                       `yaml:"allow_short" toml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short"`
	Pricing          pricing.Config             `yaml:"pricing" toml:"pricing" json:"pricing" jsonschema:"title=Pricing"`
	Broker           commission_fee.Broker      `yaml:"broker" toml:"broker" json:"broker" jsonschema:"title=Broker,description=Commission model"`
	Rates            map[string]float64         `yaml:"rates" toml:"rates" json:"rates,omitempty" validate:"dive,gt=0" jsonschema:"title=Currency Rates,description=Rates keyed by FROM/TO pair"`
	Strategies       []StrategyConfig           `yaml:"strategies" toml:"strategies" json:"strategies" validate:"required,min=1,dive" jsonschema:"title=Strategies"`
	LogLevel         string                     `yaml:"log_level" toml:"log_level" json:"log_level,omitempty" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

var validate = validator.New()

// Defaults returns a config with every optional field set to its default.
func Defaults() Config {
	return Config{
		Version:       version.GetVersion(),
		ResultsFolder: "results",
		StartTime:     optional.None[time.Time](),
		EndTime:       optional.None[time.Time](),
		BaseCurrency:  "USD",
		Resolver:      resolver.PolicySum,
		Allocation:    1,
		Pricing: pricing.Config{
			Model:      pricing.ModelNoCost,
			PriceField: types.PriceFieldClose,
		},
		Broker:   commission_fee.BrokerZero,
		LogLevel: "info",
	}
}

// Validate checks the config and the engine version it targets.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	policy, err := resolver.ParsePolicy(string(c.Resolver))
	if err != nil {
		return err
	}

	c.Resolver = policy

	if start, end := c.StartTime, c.EndTime; start.IsSome() && end.IsSome() && end.Unwrap().Before(start.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "end_time %s is before start_time %s",
			end.Unwrap().Format(time.RFC3339), start.Unwrap().Format(time.RFC3339))
	}

	return version.CheckCompatibility(version.GetVersion(), c.Version)
}

// Range returns the time window of the run.
func (c *Config) Range() datasource.Range {
	return datasource.Range{Start: c.StartTime, End: c.EndTime}
}

// RunName returns the configured name, or the data file name without extension.
func (c *Config) RunName() string {
	if c.Name != "" {
		return c.Name
	}

	base := c.DataPath[strings.LastIndexAny(c.DataPath, `/\`)+1:]
	if dot := strings.LastIndex(base, "."); dot > 0 {
		base = base[:dot]
	}

	return base
}

// GenerateSchema generates a JSON schema for Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case reflect.TypeOf(optional.Option[time.Time]{}):
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case reflect.TypeOf(commission_fee.Broker("")):
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			case reflect.TypeOf(resolver.Policy("")):
				return &jsonschema.Schema{
					Type: "string",
					Enum: resolver.AllPolicies,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "argo-sim-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
