package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"

	"github.com/utafrali/storefront/pkg/validator"
)

// Load fills cfg from the environment using its `env`/`envDefault` tags and
// then checks its `validate` tags. Validation errors name the variable, e.g.
// "field 'LOG_LEVEL' must be one of: debug info warn error".
func Load(cfg any) error {
	return load(cfg, env.Options{})
}

// LoadWithPrefix is Load for a struct whose tags omit a shared prefix, such
// as the seed tool's SEED_* settings.
func LoadWithPrefix(cfg any, prefix string) error {
	return load(cfg, env.Options{Prefix: prefix})
}

func load(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config%s: %w", describePrefix(opts.Prefix), err)
	}
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("validate config%s: %w", describePrefix(opts.Prefix), err)
	}
	return nil
}

func describePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return " (" + prefix + "*)"
}
