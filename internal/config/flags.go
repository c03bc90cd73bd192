package config

import (
	"flag"
	"os"

	"github.com/gpgcloud/gpgcloud/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   metadata database path (default from Config)
//	-b string   backend to use (default from Config)
//	-r string   recipient key id or identity
//	-l string   log level: debug, info, warn, error
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-b", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.PanicOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "metadata database path")
	fs.StringVar(&cfg.DefaultBackend, "b", cfg.DefaultBackend, "backend to use")
	fs.StringVar(&cfg.Recipient, "r", cfg.Recipient, "recipient key id or identity")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
