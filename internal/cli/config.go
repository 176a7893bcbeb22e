package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	overlay "github.com/goliatone/go-overlay"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Evaluator engines.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Config is read from the environment.
type Config struct {
	Format   string        `env:"OVERLAYCTL_FORMAT" envDefault:"yaml"`
	Engine   string        `env:"OVERLAYCTL_ENGINE" envDefault:"expr"`
	Debounce time.Duration `env:"OVERLAYCTL_DEBOUNCE" envDefault:"100ms"`
	Verbose  bool          `env:"OVERLAYCTL_VERBOSE"`
}

// LoadConfig parses and validates the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes the values and rejects unsupported ones.
func (c *Config) Validate() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	switch c.Format {
	case FormatYAML, FormatJSON:
	default:
		return fmt.Errorf("unsupported format %q (want yaml or json)", c.Format)
	}
	if _, err := newEvaluator(c.Engine); err != nil {
		return err
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	return nil
}

func newEvaluator(engine string) (overlay.Evaluator, error) {
	switch engine {
	case EngineExpr:
		return overlay.NewExprEvaluator(), nil
	case EngineCEL:
		return overlay.NewCELEvaluator(), nil
	case EngineJS:
		if !overlay.JSEvaluatorAvailable() {
			return nil, fmt.Errorf("engine %q requires a build with the js_eval tag", engine)
		}
		return overlay.NewJSEvaluator(), nil
	default:
		return nil, fmt.Errorf("unsupported engine %q", engine)
	}
}
