// Package config loads run configuration from YAML, layered over defaults
// and validated before any population is built.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lemonad/outbreak-simulation/internal/distributions"
	"github.com/lemonad/outbreak-simulation/internal/engine"
)

// AdminKeyEnv overrides api.admin_key when set.
const AdminKeyEnv = "OUTBREAK_ADMIN_KEY"

// MaxConfigSize bounds the config file read.
const MaxConfigSize = 1 << 20

var validate = newValidator()

// newValidator registers the "dwell" tag, which accepts the names in Profiles.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("dwell", func(fl validator.FieldLevel) bool {
		return slices.Contains(Profiles(), fl.Field().String())
	})
	return v
}

// Config is the complete run configuration.
type Config struct {
	Width           int    `yaml:"width" validate:"gte=1,lte=10000"`
	Height          int    `yaml:"height" validate:"gte=1,lte=10000"`
	Seed            int64  `yaml:"seed"`
	Steps           uint64 `yaml:"steps"`
	InitialInfected int    `yaml:"initial_infected" validate:"gte=0"`
	StopWhenClear   bool   `yaml:"stop_when_clear"`
	Dwell           string `yaml:"dwell" validate:"dwell"`
	DBPath          string `yaml:"db_path"`

	Transmission Transmission `yaml:"transmission"`
	Distancing   Distancing   `yaml:"distancing"`
	API          API          `yaml:"api"`
	Log          Log          `yaml:"log"`
}

// Transmission controls per-individual transmission probability.
type Transmission struct {
	Rate      float64 `yaml:"rate" validate:"gte=0,lte=1"`
	Variation float64 `yaml:"variation" validate:"gte=0,lte=1"`
}

// Distancing controls the automatic physical-distancing trigger.
type Distancing struct {
	Threshold float64 `yaml:"threshold" validate:"gte=0"` // I/S ratio; 0 disables
	Rate      float64 `yaml:"rate" validate:"gte=0,lte=1"`
}

// API controls the HTTP server.
type API struct {
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"` // 0 disables
	AdminKey string `yaml:"admin_key"`
}

// Log controls the default logger.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

// Default returns the standard run: a 100×100 population, one seed case,
// 250 steps, distancing at 10% once I/S exceeds 0.1.
func Default() Config {
	return Config{
		Width:           100,
		Height:          100,
		Steps:           250,
		InitialInfected: 1,
		StopWhenClear:   true,
		Dwell:           engine.DwellFixed,
		Transmission: Transmission{
			Rate: 0.01,
		},
		Distancing: Distancing{
			Threshold: 0.1,
			Rate:      0.1,
		},
		Log: Log{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
		if info.Size() > MaxConfigSize {
			return Config{}, fmt.Errorf("config %s exceeds %d bytes", path, MaxConfigSize)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv(AdminKeyEnv); key != "" {
		cfg.API.AdminKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Engine returns the population construction parameters.
func (c Config) Engine() engine.Config {
	return engine.Config{
		Width:                 c.Width,
		Height:                c.Height,
		Seed:                  c.Seed,
		TransmissionRate:      c.Transmission.Rate,
		TransmissionVariation: c.Transmission.Variation,
		Dwell:                 c.Dwell,
	}
}

// Policy returns the automatic distancing trigger.
func (c Config) Policy() engine.DistancingPolicy {
	return engine.DistancingPolicy{
		Threshold: c.Distancing.Threshold,
		Rate:      c.Distancing.Rate,
	}
}

// Profiles lists the accepted dwell settings.
func Profiles() []string {
	return []string{engine.DwellFixed, distributions.Covid19}
}
