package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARGO_"

// document is the on-disk layout of Config. Times are pointers so a missing key stays None.
type document struct {
	Config    `yaml:",inline"`
	StartTime *time.Time `yaml:"start_time" toml:"start_time"`
	EndTime   *time.Time `yaml:"end_time" toml:"end_time"`
}

// Load reads a YAML or TOML config file, chosen by extension, on top of Defaults. A .env
// file next to the config is loaded first; ARGO_* variables then override file values.
// The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if err := loadEnvFile(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes config content in the format named by ext (".yaml", ".yml" or ".toml").
// The result is not validated.
func Parse(data []byte, ext string) (*Config, error) {
	doc := document{Config: Defaults()}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		if err := decoder.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse YAML config", err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse TOML config", err)
		}

		if undecoded := meta.Undecoded(); len(undecoded) > 0 && !onlyParams(undecoded) {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown config key %s", undecoded[0])
		}
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported config format %q", ext)
	}

	cfg := doc.Config
	if doc.StartTime != nil {
		cfg.StartTime = optional.Some(*doc.StartTime)
	}

	if doc.EndTime != nil {
		cfg.EndTime = optional.Some(*doc.EndTime)
	}

	return &cfg, nil
}

// onlyParams reports whether every undecoded key sits under a strategy params table.
// Params are free-form and checked by the strategy itself.
func onlyParams(keys []toml.Key) bool {
	for _, key := range keys {
		if len(key) < 2 || key[0] != "strategies" || key[1] != "params" {
			return false
		}
	}

	return true
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load %s", path)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.DataPath, "DATA_PATH")
	setString(&cfg.ResultsFolder, "RESULTS_FOLDER")
	setString(&cfg.JournalPath, "JOURNAL_PATH")
	setFloat64(&cfg.InitialCash, "INITIAL_CASH")
	setString(&cfg.BaseCurrency, "BASE_CURRENCY")
	setFloat64(&cfg.MinimumReserve, "MINIMUM_RESERVE")
	setString(&cfg.Resolver, "RESOLVER")
	setFloat64(&cfg.Allocation, "ALLOCATION")
	setInt(&cfg.DecimalPrecision, "DECIMAL_PRECISION")
	setBool(&cfg.AllowShort, "ALLOW_SHORT")
	setString(&cfg.Pricing.Model, "PRICING_MODEL")
	setFloat64(&cfg.Pricing.Bips, "PRICING_BIPS")
	setString(&cfg.Pricing.PriceField, "PRICING_PRICE_FIELD")
	setString(&cfg.Broker, "BROKER")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setTime(&cfg.StartTime, "START_TIME")
	setTime(&cfg.EndTime, "END_TIME")
}

func setString[T ~string](dst *T, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = T(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setTime(dst *optional.Option[time.Time], key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			*dst = optional.Some(t)
		}
	}
}
