package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/diagnostics"
	"github.com/KaramelBytes/regdiag-cli/internal/pipeline"
	"github.com/KaramelBytes/regdiag-cli/internal/report"
	"github.com/KaramelBytes/regdiag-cli/internal/selection"
	"github.com/KaramelBytes/regdiag-cli/internal/transform"
)

// Global configuration structure.
type Global struct {
	Response    string   `mapstructure:"response" yaml:"response" validate:"required"`
	DropColumns []string `mapstructure:"drop_columns" yaml:"drop_columns"`
	MaxRows     int      `mapstructure:"max_rows" yaml:"max_rows" validate:"gte=0"`

	// Diagnostic thresholds
	Alpha            float64 `mapstructure:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	MaxVIF           float64 `mapstructure:"max_vif" yaml:"max_vif" validate:"gt=1"`
	MaxCooksDistance float64 `mapstructure:"max_cooks_distance" yaml:"max_cooks_distance" validate:"gt=0"`

	// Selection
	SignificanceEnter  float64 `mapstructure:"significance_enter" yaml:"significance_enter" validate:"gte=0,lte=1"`
	SignificanceRemove float64 `mapstructure:"significance_remove" yaml:"significance_remove" validate:"gte=0,lte=1"`
	MaxSelectionSteps  int     `mapstructure:"max_selection_steps" yaml:"max_selection_steps" validate:"gt=0"`

	// Box-Cox search and refinement
	LambdaMin      float64 `mapstructure:"lambda_min" yaml:"lambda_min" validate:"gte=-100,lte=100"`
	LambdaMax      float64 `mapstructure:"lambda_max" yaml:"lambda_max" validate:"gte=-100,lte=100,gtefield=LambdaMin"`
	LambdaStep     float64 `mapstructure:"lambda_step" yaml:"lambda_step" validate:"gt=0"`
	MaxRefineSteps int     `mapstructure:"max_refine_steps" yaml:"max_refine_steps" validate:"gt=0"`

	// Output
	ReportFormat string `mapstructure:"report_format" yaml:"report_format" validate:"oneof=markdown json yaml"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"response", "drop_columns", "max_rows",
	"alpha", "max_vif", "max_cooks_distance",
	"significance_enter", "significance_remove", "max_selection_steps",
	"lambda_min", "lambda_max", "lambda_step", "max_refine_steps",
	"report_format", "log_level", "log_format",
}

func setDefaults(v *viper.Viper) {
	th := diagnostics.DefaultThresholds()
	sel := selection.DefaultOptions()
	ref := transform.DefaultOptions()
	v.SetDefault("response", dataset.DefaultOptions().Response)
	v.SetDefault("drop_columns", []string{"date", "ticker", "symbol", "company", "year"})
	v.SetDefault("max_rows", dataset.DefaultOptions().MaxRows)
	v.SetDefault("alpha", th.Alpha)
	v.SetDefault("max_vif", th.MaxVIF)
	v.SetDefault("max_cooks_distance", th.MaxCooksDistance)
	v.SetDefault("significance_enter", sel.Enter)
	v.SetDefault("significance_remove", sel.Remove)
	v.SetDefault("max_selection_steps", sel.MaxSteps)
	v.SetDefault("lambda_min", ref.Grid.Min)
	v.SetDefault("lambda_max", ref.Grid.Max)
	v.SetDefault("lambda_step", ref.Grid.Step)
	v.SetDefault("max_refine_steps", ref.MaxSteps)
	v.SetDefault("report_format", string(report.FormatMarkdown))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		panic(err)
	}
	return &c
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".regdiag", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.regdiag/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("REGDIAG")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = validator.New()

// Validate checks every field against its allowed range.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Set parses val for key and assigns it. The result is validated.
func (c *Global) Set(key, val string) error {
	next := *c
	float := func(dst *float64) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		*dst = f
		return nil
	}
	integer := func(dst *int) error {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	var err error
	switch key {
	case "response":
		next.Response = val
	case "drop_columns":
		next.DropColumns = splitList(val)
	case "max_rows":
		err = integer(&next.MaxRows)
	case "alpha":
		err = float(&next.Alpha)
	case "max_vif":
		err = float(&next.MaxVIF)
	case "max_cooks_distance":
		err = float(&next.MaxCooksDistance)
	case "significance_enter":
		err = float(&next.SignificanceEnter)
	case "significance_remove":
		err = float(&next.SignificanceRemove)
	case "max_selection_steps":
		err = integer(&next.MaxSelectionSteps)
	case "lambda_min":
		err = float(&next.LambdaMin)
	case "lambda_max":
		err = float(&next.LambdaMax)
	case "lambda_step":
		err = float(&next.LambdaStep)
	case "max_refine_steps":
		err = integer(&next.MaxRefineSteps)
	case "report_format":
		next.ReportFormat = strings.ToLower(val)
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_format":
		next.LogFormat = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get renders the value of key for display.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "response":
		return c.Response, nil
	case "drop_columns":
		return strings.Join(c.DropColumns, ","), nil
	case "max_rows":
		return strconv.Itoa(c.MaxRows), nil
	case "alpha":
		return fmtFloat(c.Alpha), nil
	case "max_vif":
		return fmtFloat(c.MaxVIF), nil
	case "max_cooks_distance":
		return fmtFloat(c.MaxCooksDistance), nil
	case "significance_enter":
		return fmtFloat(c.SignificanceEnter), nil
	case "significance_remove":
		return fmtFloat(c.SignificanceRemove), nil
	case "max_selection_steps":
		return strconv.Itoa(c.MaxSelectionSteps), nil
	case "lambda_min":
		return fmtFloat(c.LambdaMin), nil
	case "lambda_max":
		return fmtFloat(c.LambdaMax), nil
	case "lambda_step":
		return fmtFloat(c.LambdaStep), nil
	case "max_refine_steps":
		return strconv.Itoa(c.MaxRefineSteps), nil
	case "report_format":
		return c.ReportFormat, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoaderOptions maps the config onto dataset loading options.
func (c *Global) LoaderOptions() dataset.Options {
	o := dataset.DefaultOptions()
	o.Response = c.Response
	o.Drop = append([]string(nil), c.DropColumns...)
	o.MaxRows = c.MaxRows
	return o
}

// Thresholds maps the config onto the diagnostic pass rules.
func (c *Global) Thresholds() diagnostics.Thresholds {
	return diagnostics.Thresholds{Alpha: c.Alpha, MaxVIF: c.MaxVIF, MaxCooksDistance: c.MaxCooksDistance}
}

// SelectionOptions maps the config onto the stepwise strategies.
func (c *Global) SelectionOptions(log *zerolog.Logger) selection.Options {
	return selection.Options{
		Enter:    c.SignificanceEnter,
		Remove:   c.SignificanceRemove,
		MaxSteps: c.MaxSelectionSteps,
		Logger:   log,
	}
}

// RefineOptions maps the config onto the Box-Cox refinement loop.
func (c *Global) RefineOptions(log *zerolog.Logger) transform.Options {
	return transform.Options{
		Grid:       transform.Grid{Min: c.LambdaMin, Max: c.LambdaMax, Step: c.LambdaStep},
		Thresholds: c.Thresholds(),
		MaxSteps:   c.MaxRefineSteps,
		Logger:     log,
	}
}

// PipelineConfig assembles the options for a full run.
func (c *Global) PipelineConfig(log *zerolog.Logger) pipeline.Config {
	return pipeline.Config{
		Response:  c.Response,
		Selection: c.SelectionOptions(log),
		Refine:    c.RefineOptions(log),
		Logger:    log,
	}
}
