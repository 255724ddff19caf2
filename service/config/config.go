// Package config loads run settings from defaults, an optional YAML file and the environment,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	ex "histdata/data/extensions"
)

const (
	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"

	// ConfigFileEnv names the YAML file when no path is passed to Load.
	ConfigFileEnv = "HISTDATA_CONFIG"
)

type Config struct {
	AlphaVantage AlphaVantageConfig `yaml:"alpha_vantage" envconfig:"ALPHAVANTAGE"`
	Yahoo        YahooConfig        `yaml:"yahoo" envconfig:"YAHOO"`
	Window       WindowConfig       `yaml:"window" envconfig:"WINDOW"`
	Output       OutputConfig       `yaml:"output" envconfig:"OUTPUT"`
	Pipeline     PipelineConfig     `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging      LoggingConfig      `yaml:"logging" envconfig:"LOG"`
	Series       []SeriesConfig     `yaml:"series" ignored:"true" validate:"dive"`
}

type AlphaVantageConfig struct {
	APIKey  string        `yaml:"api_key" split_words:"true" validate:"required"`
	Host    string        `yaml:"host" split_words:"true" validate:"required"`
	Pause   time.Duration `yaml:"pause" split_words:"true" validate:"gte=0"`
	Timeout time.Duration `yaml:"timeout" split_words:"true" validate:"gt=0"`
}

type YahooConfig struct {
	Host      string        `yaml:"host" split_words:"true" validate:"required"`
	Pause     time.Duration `yaml:"pause" split_words:"true" validate:"gte=0"`
	Timeout   time.Duration `yaml:"timeout" split_words:"true" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" split_words:"true"`
}

// WindowConfig holds inclusive yyyy-mm-dd bounds.
type WindowConfig struct {
	FetchStart  string `yaml:"fetch_start" split_words:"true" validate:"required,datetime=2006-01-02"`
	FetchEnd    string `yaml:"fetch_end" split_words:"true" validate:"required,datetime=2006-01-02"`
	MacroStart  string `yaml:"macro_start" split_words:"true" validate:"required,datetime=2006-01-02"`
	OutputStart string `yaml:"output_start" split_words:"true" validate:"required,datetime=2006-01-02"`
	OutputEnd   string `yaml:"output_end" split_words:"true" validate:"required,datetime=2006-01-02"`
}

type OutputConfig struct {
	Path        string `yaml:"path" split_words:"true" validate:"required"`
	XLSXPath    string `yaml:"xlsx_path" split_words:"true"`
	SummaryPath string `yaml:"summary_path" split_words:"true"`
	MetricsPath string `yaml:"metrics_path" split_words:"true"`
}

type PipelineConfig struct {
	OnError  string `yaml:"on_error" split_words:"true" validate:"oneof=abort continue"`
	Parallel bool   `yaml:"parallel" split_words:"true"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=json text"`
}

// SeriesConfig is one entry of a custom series plan.
type SeriesConfig struct {
	Name         string `yaml:"name" validate:"required"`
	Provider     string `yaml:"provider" validate:"oneof=alpha_vantage yahoo"`
	Symbol       string `yaml:"symbol"`
	Function     string `yaml:"function"`
	Interval     string `yaml:"interval"`
	Returns      bool   `yaml:"returns"`
	ReturnColumn string `yaml:"return_column"`
	FillForward  bool   `yaml:"fill_forward"`
	Macro        bool   `yaml:"macro"`
}

// Window is WindowConfig parsed into dates.
type Window struct {
	FetchStart  time.Time
	FetchEnd    time.Time
	MacroStart  time.Time
	OutputStart time.Time
	OutputEnd   time.Time
}

func Default() Config {
	return Config{
		AlphaVantage: AlphaVantageConfig{
			Host:    "www.alphavantage.co",
			Pause:   12 * time.Second,
			Timeout: 30 * time.Second,
		},
		Yahoo: YahooConfig{
			Host:    "query2.finance.yahoo.com",
			Timeout: 30 * time.Second,
		},
		Window: WindowConfig{
			FetchStart:  "2011-08-11",
			FetchEnd:    "2021-08-12",
			MacroStart:  "2011-08-01",
			OutputStart: "2011-08-12",
			OutputEnd:   "2021-08-12",
		},
		Output: OutputConfig{
			Path: "output/market_data.csv",
		},
		Pipeline: PipelineConfig{
			OnError: OnErrorAbort,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .env (if present), then the YAML file at path (or $HISTDATA_CONFIG), then
// environment overrides, and validates the result. An empty path with no env file name
// means defaults plus environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config %s: %w", path, err)
		}
		if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("error applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	w, err := c.Window.Parse()
	if err != nil {
		return err
	}
	if w.FetchEnd.Before(w.FetchStart) {
		return fmt.Errorf("invalid config: fetch window ends before it starts")
	}
	if w.MacroStart.After(w.FetchStart) {
		return fmt.Errorf("invalid config: macro_start must not be after fetch_start")
	}
	if w.OutputEnd.Before(w.OutputStart) {
		return fmt.Errorf("invalid config: output window ends before it starts")
	}
	return nil
}

func (w WindowConfig) Parse() (Window, error) {
	var res Window
	fields := []struct {
		name string
		raw  string
		dst  *time.Time
	}{
		{"fetch_start", w.FetchStart, &res.FetchStart},
		{"fetch_end", w.FetchEnd, &res.FetchEnd},
		{"macro_start", w.MacroStart, &res.MacroStart},
		{"output_start", w.OutputStart, &res.OutputStart},
		{"output_end", w.OutputEnd, &res.OutputEnd},
	}
	for _, f := range fields {
		d, err := ex.ParseShort(f.raw)
		if err != nil {
			return Window{}, fmt.Errorf("invalid config: window %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return res, nil
}
