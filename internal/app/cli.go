package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("data-dir", "d", "", "Base data directory")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")
	flags.String("engine-base-dir", "", "Search engine storage directory")
	flags.String("queue-database-path", "", "Reindex queue database path")
	flags.String("queue-schedule", "", "Cron spec for scheduled queue runs")
}
