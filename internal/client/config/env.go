package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// parseEnv overlays cfg with DOGSTACK_* environment variables. Unset
// variables leave fields unchanged; malformed values panic.
func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(fmt.Errorf("read env config: %w", err))
	}
}
