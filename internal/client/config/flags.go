package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/dogstack/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-b string   backend url
//	-k string   anon api key
//	-d string   local database path
//	-l string   log level
//	-i int      foreground check interval in seconds
//	-u string   initial link, e.g. dogstack://auth/callback?code=...
//
// Only these flags are picked out of args (flagx.FilterArgs), so other layers
// can own the rest of the command line.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-b", "-k", "-d", "-l", "-i", "-u"})

	fs := flag.NewFlagSet("dogstack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "backend url")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "anon api key")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug|info|warn|error)")
	interval := fs.Int("i", int(cfg.ForegroundCheckInterval.Seconds()), "foreground check interval (in seconds)")
	fs.StringVar(&cfg.InitialURL, "u", cfg.InitialURL, "initial link to handle on start")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.ForegroundCheckInterval = time.Duration(*interval) * time.Second
		}
	})
}
