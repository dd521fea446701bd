// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/datetime"
	"github.com/iwvelando/loan-affordability/pkg/validation"
	"github.com/spf13/viper"
)

// DateTimeLayout is the format expected in config files and is also the output
// date format.
const DateTimeLayout = constants.DateTimeLayout

// Configuration holds all configuration for loan-affordability.
type Configuration struct {
	Defaults     Defaults          `yaml:"defaults,omitempty" mapstructure:"defaults"`
	Limits       validation.Limits `yaml:"limits,omitempty" mapstructure:"limits"`
	Applications []Application     `yaml:"applications" mapstructure:"applications"`
	Logging      LoggingConfig     `yaml:"logging,omitempty" mapstructure:"logging"`
	Output       OutputConfig      `yaml:"output,omitempty" mapstructure:"output"`
}

// Defaults holds values shared by every application unless overridden.
type Defaults struct {
	AnnualRate     *float64 `yaml:"annualRate,omitempty" mapstructure:"annualRate"`
	Currency       string   `yaml:"currency,omitempty" mapstructure:"currency"`
	CurrencyPlaces *int32   `yaml:"currencyPlaces,omitempty" mapstructure:"currencyPlaces"`
	StartDate      string   `yaml:"startDate,omitempty" mapstructure:"startDate"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv
}

// Application is one named loan request evaluated against a borrower profile.
type Application struct {
	Name                       string           `yaml:"name" mapstructure:"name"`
	Active                     bool             `yaml:"active" mapstructure:"active"`
	Amount                     float64          `yaml:"amount" mapstructure:"amount"`
	TermMonths                 int              `yaml:"termMonths" mapstructure:"termMonths"`
	AnnualRate                 *float64         `yaml:"annualRate,omitempty" mapstructure:"annualRate"`
	MonthlyIncome              float64          `yaml:"monthlyIncome" mapstructure:"monthlyIncome"`
	MonthlyExpenses            float64          `yaml:"monthlyExpenses" mapstructure:"monthlyExpenses"`
	ExistingMonthlyObligations float64          `yaml:"existingMonthlyObligations,omitempty" mapstructure:"existingMonthlyObligations"`
	StartDate                  string           `yaml:"startDate,omitempty" mapstructure:"startDate"`
	Schedule                   bool             `yaml:"schedule,omitempty" mapstructure:"schedule"`
	Optimizer                  *OptimizerConfig `yaml:"optimizer,omitempty" mapstructure:"optimizer"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.applyDefaults()
	return &configuration, nil
}

func (c *Configuration) applyDefaults() {
	if c.Defaults.AnnualRate == nil {
		rate := constants.DefaultAnnualRate
		c.Defaults.AnnualRate = &rate
	}
	if c.Defaults.Currency == "" {
		c.Defaults.Currency = constants.DefaultCurrency
	}
	if c.Defaults.CurrencyPlaces == nil {
		places := int32(constants.DefaultCurrencyPlaces)
		c.Defaults.CurrencyPlaces = &places
	}
	c.Limits = c.Limits.WithDefaults()
}

// Validate returns an error for configuration the estimator cannot run with.
func (c *Configuration) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, app := range c.Applications {
		name := strings.TrimSpace(app.Name)
		if name == "" {
			return fmt.Errorf("application %d has no name", i+1)
		}
		if seen[name] {
			return fmt.Errorf("application name %q is used more than once", name)
		}
		seen[name] = true

		if app.StartDate != "" {
			if err := datetime.ValidateDate(app.StartDate); err != nil {
				return fmt.Errorf("application %s: %w", name, err)
			}
		}
		if app.Optimizer != nil {
			if err := app.Optimizer.Validate(); err != nil {
				return fmt.Errorf("application %s: %w", name, err)
			}
		}
	}

	if c.Defaults.StartDate != "" {
		if err := datetime.ValidateDate(c.Defaults.StartDate); err != nil {
			return fmt.Errorf("defaults: %w", err)
		}
	}

	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	active := 0
	for _, app := range c.Applications {
		if !app.Active {
			continue
		}
		active++
		for _, warning := range validation.ValidateForm(app.LoanTerms(c.Defaults), app.BorrowerProfile(), c.Limits) {
			warnings = append(warnings, fmt.Sprintf("application %s: %s", app.Name, warning))
		}
	}

	if len(c.Applications) == 0 {
		warnings = append(warnings, "no applications are configured")
	} else if active == 0 {
		warnings = append(warnings, "no applications are active")
	}

	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	return warnings
}

// ActiveApplications returns the applications marked active, in config order.
func (c *Configuration) ActiveApplications() []Application {
	var active []Application
	for _, app := range c.Applications {
		if app.Active {
			active = append(active, app)
		}
	}
	return active
}
